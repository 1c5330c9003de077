// Package dispatch routes classified events to chat destinations and the
// stats recorder.
package dispatch

import (
	"context"

	"golang.org/x/time/rate"

	"clanwatch/internal/channels"
	"clanwatch/internal/event"
	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

// categoryFor is the single kind-to-category table. Every handler branching
// the original bot repeated per event lives here once.
var categoryFor = map[event.Kind]channels.Category{
	event.MemberDonated:                channels.Donations,
	event.MemberReceived:               channels.Donations,
	event.MemberJoined:                 channels.Welcome,
	event.MemberLeft:                   channels.Welcome,
	event.ClanPointsChanged:            channels.Rank,
	event.MemberTrophiesChanged:        channels.Rank,
	event.MemberBuilderTrophiesChanged: channels.Rank,
	event.WarAttackRecorded:            channels.Wars,
	event.NewWarStarted:                channels.Wars,
	event.MaintenanceStarted:           channels.Default,
	event.MaintenanceEnded:             channels.Default,
	event.SeasonStarted:                channels.Default,
	event.ClanGamesStarted:             channels.Games,
	event.ClanGamesEnded:               channels.Games,
	event.RaidWeekendStarted:           channels.Raid,
	event.RaidWeekendEnded:             channels.Raid,
}

// CategoryFor returns the notification category an event kind routes to.
// Unknown kinds route to Default.
func CategoryFor(k event.Kind) channels.Category {
	if c, ok := categoryFor[k]; ok {
		return c
	}
	return channels.Default
}

// Outcome reports both side effects of a dispatch so a caller can assert on
// either without the other masking it.
type Outcome struct {
	Category channels.Category

	Delivered   bool
	Fallback    bool // Default used because the category was unconfigured
	DeliveryErr error

	Recorded  bool // kind maps to a stats row and the write was attempted
	RecordErr error
}

// recorder is the durability side effect. *stats.Recorder satisfies it.
type recorder interface {
	Record(ctx context.Context, ev event.Event) (bool, error)
}

// Dispatcher is stateless between calls; routing state lives in the
// directory, which may be rebuilt underneath it at any time.
type Dispatcher struct {
	dir     *channels.Directory
	sender  transport.Sender
	rec     recorder
	limiter *rate.Limiter
	log     logx.Logger
}

type Config struct {
	// RatePerSec caps outgoing deliveries; chat platforms throttle hard.
	RatePerSec int
}

func New(cfg Config, dir *channels.Directory, sender transport.Sender, rec recorder, log logx.Logger) *Dispatcher {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Dispatcher{
		dir:     dir,
		sender:  sender,
		rec:     rec,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Dispatch persists and delivers one event. The two side effects are
// independent: a storage failure never suppresses delivery and vice versa.
// Every call writes one audit line regardless of either outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Event) Outcome {
	out := Outcome{Category: CategoryFor(ev.Kind)}

	if d.rec != nil {
		out.Recorded, out.RecordErr = d.rec.Record(ctx, ev)
		if out.RecordErr != nil {
			d.log.Error("stats write failed",
				logx.String("kind", string(ev.Kind)),
				logx.String("subject", ev.Subject()),
				logx.Err(out.RecordErr))
		}
	}

	d.deliver(ctx, ev, &out)
	d.audit(ev, out)
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, ev event.Event, out *Outcome) {
	dest, ok := d.dir.Resolve(out.Category)
	if !ok {
		if out.Category != channels.Default {
			d.log.Warn("no channel set for category; falling back to default",
				logx.String("category", string(out.Category)),
				logx.String("kind", string(ev.Kind)))
		}
		dest, ok = d.dir.Resolve(channels.Default)
		if !ok {
			d.log.Error("no default channel set; event not delivered",
				logx.String("kind", string(ev.Kind)),
				logx.String("subject", ev.Subject()))
			return
		}
		out.Fallback = out.Category != channels.Default
	}

	if d.sender == nil {
		return
	}
	if err := d.limiter.Wait(ctx); err != nil {
		out.DeliveryErr = err
		return
	}
	if err := d.sender.Send(ctx, dest, event.Format(ev)); err != nil {
		out.DeliveryErr = err
		d.log.Error("delivery failed",
			logx.String("kind", string(ev.Kind)),
			logx.String("dest", string(dest)),
			logx.Err(err))
		return
	}
	out.Delivered = true
}

// audit writes the one structured line per classified event. Both side
// effects report here so the line alone tells what happened to the event.
func (d *Dispatcher) audit(ev event.Event, out Outcome) {
	d.log.Info("event",
		logx.String("at", ev.Stamp()),
		logx.String("kind", string(ev.Kind)),
		logx.String("clan", ev.ClanTag),
		logx.String("subject", ev.Subject()),
		logx.Int("delta", ev.Delta),
		logx.String("category", string(out.Category)),
		logx.Bool("delivered", out.Delivered),
		logx.Bool("fallback", out.Fallback),
		logx.Bool("recorded", out.Recorded),
		logx.NamedErr("deliver_err", out.DeliveryErr),
		logx.NamedErr("record_err", out.RecordErr),
	)
}
