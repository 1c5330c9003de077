// Package digest posts a scheduled summary of the past day's recorded
// stats back into chat.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"clanwatch/internal/channels"
	"clanwatch/internal/stats"
	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

const defaultSchedule = "0 9 * * *"

// reader is the subset of the stats recorder the digest needs.
type reader interface {
	DonationTotals(ctx context.Context, since time.Time) ([]stats.DonorTotal, error)
	TrophySummary(ctx context.Context, since time.Time) ([]stats.TrophyLatest, error)
}

type Config struct {
	Schedule string
}

type Service struct {
	cron   *cron.Cron
	rec    reader
	dir    *channels.Directory
	sender transport.Sender
	log    logx.Logger
}

func New(cfg Config, rec reader, dir *channels.Directory, sender transport.Sender, log logx.Logger) (*Service, error) {
	s := &Service{
		cron:   cron.New(),
		rec:    rec,
		dir:    dir,
		sender: sender,
		log:    log,
	}
	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		spec = defaultSchedule
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("digest: bad schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Service) Start() { s.cron.Start() }

func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-ctx.Done():
	case <-done:
	}
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	text, err := s.Render(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.log.Error("digest build failed", logx.Err(err))
		return
	}
	if text == "" {
		s.log.Info("digest: nothing recorded in the last day")
		return
	}

	dest, ok := s.dir.Resolve(channels.Donations)
	if !ok {
		dest, ok = s.dir.Resolve(channels.Default)
	}
	if !ok {
		s.log.Error("digest: no channel configured; logging only", logx.String("digest", text))
		return
	}
	if err := s.sender.Send(ctx, dest, text); err != nil {
		s.log.Error("digest delivery failed", logx.Err(err))
		return
	}
	s.log.Info("digest delivered", logx.String("dest", string(dest)))
}

// Render builds the digest text from rows recorded since the given time.
// Empty output means there was nothing to report.
func (s *Service) Render(ctx context.Context, since time.Time) (string, error) {
	donors, err := s.rec.DonationTotals(ctx, since)
	if err != nil {
		return "", err
	}
	trophies, err := s.rec.TrophySummary(ctx, since)
	if err != nil {
		return "", err
	}
	if len(donors) == 0 && len(trophies) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Daily clan digest\n")
	if len(donors) > 0 {
		b.WriteString("Top donors:\n")
		for i, d := range donors {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "  %d. %s - %d troops\n", i+1, d.Name, d.Total)
		}
	}
	if len(trophies) > 0 {
		b.WriteString("Trophy standings:\n")
		for i, t := range trophies {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "  %d. %s - %d trophies (%d changes)\n", i+1, t.Name, t.Trophies, t.Changes)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
