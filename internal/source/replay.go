package source

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"clanwatch/internal/clash"
	"clanwatch/pkg/logx"
)

// Replay reads changes from a JSON Lines file, one clash.Change per line.
// Blank lines and lines starting with '#' are skipped; a malformed line is
// logged and skipped rather than aborting the replay.
type Replay struct {
	path string
	log  logx.Logger
}

func NewReplay(path string, log logx.Logger) *Replay {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Replay{path: path, log: log}
}

func (r *Replay) Run(ctx context.Context, submit func(clash.Change)) error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var c clash.Change
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			r.log.Warn("replay: skipping malformed line",
				logx.String("path", r.path),
				logx.Int("line", line),
				logx.Err(err))
			continue
		}
		submit(c)
	}
	return sc.Err()
}
