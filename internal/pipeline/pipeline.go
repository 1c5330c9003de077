// Package pipeline feeds upstream changes through classification and
// dispatch, serializing work per subject while unrelated subjects run in
// parallel.
package pipeline

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"clanwatch/internal/clash"
	"clanwatch/internal/dispatch"
	"clanwatch/internal/event"
	"clanwatch/pkg/logx"
)

// dispatcher is the delivery+durability stage. *dispatch.Dispatcher
// satisfies it.
type dispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) dispatch.Outcome
}

// Pipeline owns one sequential queue per subject key. Deltas are computed
// against the immediately preceding snapshot upstream, so two changes for
// the same counter must never be processed concurrently or out of order;
// changes for different subjects have no ordering relationship and run on
// independent goroutines.
type Pipeline struct {
	disp dispatcher
	log  logx.Logger

	mu      sync.Mutex
	queues  map[string]*subjectQueue
	stopped bool
	wg      sync.WaitGroup
}

type subjectQueue struct {
	pending []clash.Change
	running bool
}

func New(disp dispatcher, log logx.Logger) *Pipeline {
	return &Pipeline{
		disp:   disp,
		log:    log,
		queues: make(map[string]*subjectQueue),
	}
}

// Submit enqueues one change. It never blocks on classification, delivery
// or persistence; those run on the subject's queue goroutine. Submissions
// after Stop are dropped.
func (p *Pipeline) Submit(c clash.Change) {
	key := c.SubjectKey()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	q := p.queues[key]
	if q == nil {
		q = &subjectQueue{}
		p.queues[key] = q
	}
	q.pending = append(q.pending, c)
	if q.running {
		p.mu.Unlock()
		return
	}
	q.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.drain(key, q)
}

// drain processes the subject's queue in FIFO order until it is empty, then
// parks the goroutine. A later Submit for the same key starts a fresh one.
func (p *Pipeline) drain(key string, q *subjectQueue) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in pipeline worker",
				logx.String("subject", key),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			p.mu.Lock()
			q.running = false
			p.mu.Unlock()
		}
	}()

	for {
		p.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			delete(p.queues, key)
			p.mu.Unlock()
			return
		}
		c := q.pending[0]
		q.pending = q.pending[1:]
		p.mu.Unlock()

		p.process(c)
	}
}

func (p *Pipeline) process(c clash.Change) {
	ev, ok := event.Classify(c)
	if !ok {
		// Unknown upstream kinds are skipped, never fatal.
		p.log.Debug("unrecognized change kind skipped", logx.String("kind", string(c.Kind)))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.disp.Dispatch(ctx, ev)
}

// Stop blocks intake and waits for queued work to finish so no in-flight
// row is abandoned mid-write. Returns early if ctx expires first.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
