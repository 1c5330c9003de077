// Package app wires the pipeline together and owns process lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"clanwatch/internal/channels"
	"clanwatch/internal/clash"
	"clanwatch/internal/config"
	"clanwatch/internal/digest"
	"clanwatch/internal/dispatch"
	"clanwatch/internal/eventbus"
	"clanwatch/internal/pipeline"
	"clanwatch/internal/source"
	"clanwatch/internal/stats"
	"clanwatch/internal/transport/telegram"
	"clanwatch/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config

	logs *logx.Service
	log  logx.Logger
	bus  eventbus.Bus

	sender *telegram.Sender
	dir    *channels.Directory
	rec    *stats.Recorder
	disp   *dispatch.Dispatcher
	pipe   *pipeline.Pipeline
	dig    *digest.Service
	src    source.Source

	runCancel context.CancelFunc
	grp       *errgroup.Group
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)

	pollTimeout, err := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sender, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		Chats:       telegramChats(cfg),
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logConfig(cfg), sender)

	busyTimeout, err := config.ParseDuration("stats.busy_timeout", cfg.Stats.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	// Schema mismatch surfaces here, before anything is dispatched.
	rec, err := stats.Open(stats.Config{Path: cfg.Stats.Path, BusyTimeout: busyTimeout},
		log.With(logx.String("comp", "stats")))
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("stats bootstrap: %w", err)
	}

	dir := channels.NewDirectory(log.With(logx.String("comp", "channels")))
	disp := dispatch.New(dispatch.Config{RatePerSec: cfg.Dispatch.RatePerSec},
		dir, sender, rec, log.With(logx.String("comp", "dispatch")))
	pipe := pipeline.New(disp, log.With(logx.String("comp", "pipeline")))

	var dig *digest.Service
	if cfg.Digest.Enabled {
		dig, err = digest.New(digest.Config{Schedule: cfg.Digest.Schedule},
			rec, dir, sender, log.With(logx.String("comp", "digest")))
		if err != nil {
			rec.Close()
			logs.Close()
			return nil, err
		}
	}

	var src source.Source
	switch strings.ToLower(strings.TrimSpace(cfg.Source.Driver)) {
	case "", "none":
	case "replay":
		src = source.NewReplay(cfg.Source.Path, log.With(logx.String("comp", "replay")))
	default:
		rec.Close()
		logs.Close()
		return nil, fmt.Errorf("unknown source driver: %s", cfg.Source.Driver)
	}

	return &App{
		cfgPath: cfgPath,
		cfg:     cfg,
		logs:    logs,
		log:     log.With(logx.String("comp", "app")),
		bus:     eventbus.New(),
		sender:  sender,
		dir:     dir,
		rec:     rec,
		disp:    disp,
		pipe:    pipe,
		dig:     dig,
		src:     src,
	}, nil
}

func telegramChats(cfg *config.Config) []telegram.Chat {
	chats := make([]telegram.Chat, 0, len(cfg.Telegram.Chats))
	for _, c := range cfg.Telegram.Chats {
		chats = append(chats, telegram.Chat{ID: c.ID, Name: c.Name})
	}
	return chats
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Channel: logx.ChannelConfig{
			Enabled:    cfg.Logging.Channel.Enabled,
			MinLevel:   cfg.Logging.Channel.MinLevel,
			RatePerSec: cfg.Logging.Channel.RatePerSec,
		},
	}
}

// Submit feeds one detected change into the pipeline. This is the entry
// point the live poller calls.
func (a *App) Submit(c clash.Change) { a.pipe.Submit(c) }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel

	a.rebuildDirectory(runCtx)

	grp, gctx := errgroup.WithContext(runCtx)
	a.grp = grp

	grp.Go(func() error {
		return config.Watch(gctx, a.cfgPath, a.bus, a.log)
	})
	grp.Go(func() error {
		a.consumeBus(gctx)
		return nil
	})
	if a.src != nil {
		grp.Go(func() error {
			if err := a.src.Run(gctx, a.Submit); err != nil && gctx.Err() == nil {
				a.log.Error("change source stopped", logx.Err(err))
			}
			return nil
		})
	}
	if a.dig != nil {
		a.dig.Start()
	}

	a.announceStartup(runCtx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("clanwatch started", logx.String("clan", a.cfg.Clan.Tag))
	return nil
}

// rebuildDirectory swaps in a fresh channel directory and repoints the log
// mirror at the Default channel.
func (a *App) rebuildDirectory(ctx context.Context) {
	chs, err := a.sender.Channels(ctx)
	if err != nil {
		a.log.Error("channel listing failed; directory not rebuilt", logx.Err(err))
		return
	}
	a.dir.Rebuild(chs)
	if dest, ok := a.dir.Resolve(channels.Default); ok {
		a.logs.SetChannelTarget(dest)
	} else {
		a.logs.SetChannelTarget("")
	}
}

func (a *App) announceStartup(ctx context.Context) {
	msg := "Clan event watcher started."
	dest, ok := a.dir.Resolve(channels.Default)
	if !ok {
		a.log.Error("no default channel set; startup announced in log only")
		return
	}
	if err := a.sender.Send(ctx, dest, msg); err != nil {
		a.log.Warn("startup announcement failed", logx.Err(err))
		return
	}
	a.log.Info(msg)
}

// consumeBus reacts to config reloads: logging re-applies, the sender's
// chat list is replaced, and the directory is rebuilt atomically from it.
// Pipeline and stats settings stay fixed per process.
func (a *App) consumeBus(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(8)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != eventbus.TypeConfigReloaded {
				continue
			}
			cfg, ok := ev.Data.(*config.Config)
			if !ok {
				continue
			}
			a.cfg = cfg
			a.logs.Apply(logConfig(cfg))
			a.sender.SetChats(telegramChats(cfg))
			a.rebuildDirectory(ctx)
		}
	}
}

// Stop drains in-flight work before closing the store so no row is
// abandoned mid-write.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.dig != nil {
		a.dig.Stop(ctx)
	}
	if err := a.pipe.Stop(ctx); err != nil {
		a.log.Warn("pipeline drain incomplete", logx.Err(err))
	}
	if a.runCancel != nil {
		a.runCancel()
	}
	if a.grp != nil {
		_ = a.grp.Wait()
	}

	err := a.rec.Close()
	a.log.Info("clanwatch stopped")
	a.logs.Close()
	return err
}
