package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clanwatch/internal/clash"
	"clanwatch/internal/dispatch"
	"clanwatch/internal/event"
	"clanwatch/pkg/logx"
)

// slowDispatcher records dispatch order per subject and can stall the first
// call it sees, to provoke reordering if serialization were broken.
type slowDispatcher struct {
	mu      sync.Mutex
	deltas  map[string][]int
	stalled atomic.Bool
	stall   time.Duration
}

func newSlowDispatcher(stall time.Duration) *slowDispatcher {
	return &slowDispatcher{deltas: map[string][]int{}, stall: stall}
}

func (d *slowDispatcher) Dispatch(ctx context.Context, ev event.Event) dispatch.Outcome {
	// Only the first caller stalls; sync.Once is unsuitable here because
	// Do blocks concurrent callers until the first call returns, which
	// would stall unrelated subjects inside the test helper itself.
	if d.stall > 0 && d.stalled.CompareAndSwap(false, true) {
		time.Sleep(d.stall)
	}
	d.mu.Lock()
	d.deltas[ev.MemberTag] = append(d.deltas[ev.MemberTag], ev.Delta)
	d.mu.Unlock()
	return dispatch.Outcome{}
}

func donationChange(tag string, old, new int) clash.Change {
	return clash.Change{
		Kind: clash.MemberDonations,
		Old:  clash.Snapshot{Tag: tag, ClanTag: "#CLAN", Donations: old},
		New:  clash.Snapshot{Tag: tag, ClanTag: "#CLAN", Donations: new},
	}
}

func TestPerSubjectOrdering(t *testing.T) {
	// Snapshots at t1 (10), t2 (15), t3 (20). Processing (t1->t2) and
	// (t2->t3) concurrently must never yield a delta computed across the
	// skipped intermediate state; the first dispatch is artificially
	// delayed so a broken implementation would flip the order.
	disp := newSlowDispatcher(50 * time.Millisecond)
	p := New(disp, logx.Nop())

	p.Submit(donationChange("#AAA", 10, 15))
	p.Submit(donationChange("#AAA", 15, 20))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	got := disp.deltas["#AAA"]
	if len(got) != 2 || got[0] != 5 || got[1] != 5 {
		t.Fatalf("per-subject deltas = %v, want [5 5] in order", got)
	}
}

func TestCrossSubjectParallelism(t *testing.T) {
	// A stalled subject must not hold up an unrelated one.
	disp := newSlowDispatcher(200 * time.Millisecond)
	p := New(disp, logx.Nop())

	p.Submit(donationChange("#SLOW", 0, 1))
	time.Sleep(10 * time.Millisecond) // let the stalled worker grab the stall
	p.Submit(donationChange("#FAST", 0, 1))

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		disp.mu.Lock()
		done := len(disp.deltas["#FAST"]) == 1
		disp.mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	disp.mu.Lock()
	fast := len(disp.deltas["#FAST"])
	disp.mu.Unlock()
	if fast != 1 {
		t.Fatalf("unrelated subject was blocked behind a slow one")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.Stop(ctx)
}

func TestUnknownKindIsDropped(t *testing.T) {
	disp := newSlowDispatcher(0)
	p := New(disp, logx.Nop())

	p.Submit(clash.Change{Kind: "capital_raid_medals"})
	p.Submit(donationChange("#AAA", 0, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(disp.deltas["#AAA"]) != 1 {
		t.Fatalf("known change lost: %v", disp.deltas)
	}
	if len(disp.deltas) != 1 {
		t.Fatalf("unknown kind must be skipped, got %v", disp.deltas)
	}
}

func TestSubmitAfterStopIsDropped(t *testing.T) {
	disp := newSlowDispatcher(0)
	p := New(disp, logx.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	p.Submit(donationChange("#AAA", 0, 1))
	time.Sleep(20 * time.Millisecond)

	disp.mu.Lock()
	defer disp.mu.Unlock()
	if len(disp.deltas) != 0 {
		t.Fatalf("submission after Stop must be dropped")
	}
}
