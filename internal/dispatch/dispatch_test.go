package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"clanwatch/internal/channels"
	"clanwatch/internal/clash"
	"clanwatch/internal/event"
	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
	err  error
}

type sentMsg struct {
	to   transport.Destination
	text string
}

func (f *fakeSender) Channels(ctx context.Context) ([]transport.ChannelDescriptor, error) {
	return nil, nil
}

func (f *fakeSender) Send(ctx context.Context, to transport.Destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMsg{to: to, text: text})
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []event.Event
	stored bool
	err    error
}

func (f *fakeRecorder) Record(ctx context.Context, ev event.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.stored, f.err
}

func builtDirectory(t *testing.T, chs ...transport.ChannelDescriptor) *channels.Directory {
	t.Helper()
	d := channels.NewDirectory(logx.Nop())
	d.Rebuild(chs)
	return d
}

func donation() event.Event {
	ev, _ := event.Classify(clash.Change{
		Kind: clash.MemberDonations,
		Old:  clash.Snapshot{Tag: "#AAA", Name: "Ash", ClanTag: "#CLAN", ClanName: "Foo", Donations: 0},
		New:  clash.Snapshot{Tag: "#AAA", Name: "Ash", ClanTag: "#CLAN", ClanName: "Foo", Donations: 50},
	})
	return ev
}

func TestDispatchToCategoryChannel(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{stored: true}
	dir := builtDirectory(t,
		transport.ChannelDescriptor{ID: "1", Name: "general"},
		transport.ChannelDescriptor{ID: "2", Name: "donations"},
	)
	d := New(Config{RatePerSec: 100}, dir, sender, rec, logx.Nop())

	out := d.Dispatch(context.Background(), donation())

	if !out.Delivered || out.Fallback {
		t.Fatalf("outcome: %+v", out)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "2" {
		t.Fatalf("sent: %+v, want the donations channel", sender.sent)
	}
	if !out.Recorded || out.RecordErr != nil {
		t.Fatalf("recording outcome: %+v", out)
	}
}

func TestDispatchFallsBackToDefault(t *testing.T) {
	sender := &fakeSender{}
	dir := builtDirectory(t, transport.ChannelDescriptor{ID: "1", Name: "general"})
	d := New(Config{RatePerSec: 100}, dir, sender, &fakeRecorder{stored: true}, logx.Nop())

	out := d.Dispatch(context.Background(), donation())

	if !out.Delivered {
		t.Fatalf("expected delivery to default: %+v", out)
	}
	if !out.Fallback {
		t.Fatalf("outcome must flag that the fallback was used")
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "1" {
		t.Fatalf("sent: %+v", sender.sent)
	}
}

func TestDispatchNoChannelsStillRecords(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{stored: true}
	d := New(Config{RatePerSec: 100}, channels.NewDirectory(logx.Nop()), sender, rec, logx.Nop())

	out := d.Dispatch(context.Background(), donation())

	if out.Delivered {
		t.Fatalf("nothing configured, nothing should be delivered")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("unexpected sends: %+v", sender.sent)
	}
	if len(rec.events) != 1 || !out.Recorded {
		t.Fatalf("the recorder must still receive the event: %+v", out)
	}
}

func TestDispatchRecordErrorDoesNotSuppressDelivery(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{stored: true, err: errors.New("disk full")}
	dir := builtDirectory(t, transport.ChannelDescriptor{ID: "1", Name: "general"})
	d := New(Config{RatePerSec: 100}, dir, sender, rec, logx.Nop())

	out := d.Dispatch(context.Background(), donation())

	if out.RecordErr == nil {
		t.Fatalf("record error must surface in the outcome")
	}
	if !out.Delivered || len(sender.sent) != 1 {
		t.Fatalf("storage failure must not block delivery: %+v", out)
	}
}

func TestDispatchDeliveryErrorDoesNotSuppressRecord(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	rec := &fakeRecorder{stored: true}
	dir := builtDirectory(t, transport.ChannelDescriptor{ID: "1", Name: "general"})
	d := New(Config{RatePerSec: 100}, dir, sender, rec, logx.Nop())

	out := d.Dispatch(context.Background(), donation())

	if out.Delivered || out.DeliveryErr == nil {
		t.Fatalf("outcome: %+v", out)
	}
	if len(rec.events) != 1 || !out.Recorded || out.RecordErr != nil {
		t.Fatalf("delivery failure must not block recording: %+v", out)
	}
}

func TestAuditLineCarriesBothErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	rec := &fakeRecorder{stored: true, err: errors.New("disk full")}
	dir := builtDirectory(t, transport.ChannelDescriptor{ID: "1", Name: "general"})

	var buf bytes.Buffer
	d := New(Config{RatePerSec: 100}, dir, sender, rec, logx.NewWriter(&buf, "info"))

	d.Dispatch(context.Background(), donation())

	var audit map[string]any
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("log line not JSON: %v\n%s", err, line)
		}
		if m["message"] == "event" {
			audit = m
		}
	}
	if audit == nil {
		t.Fatalf("no audit line written:\n%s", buf.String())
	}
	if audit["deliver_err"] != "gateway down" {
		t.Fatalf("deliver_err = %v", audit["deliver_err"])
	}
	if audit["record_err"] != "disk full" {
		t.Fatalf("record_err = %v", audit["record_err"])
	}
	if audit["delivered"] != false || audit["recorded"] != true {
		t.Fatalf("audit outcome fields: %v", audit)
	}
}

func TestCategoryTable(t *testing.T) {
	cases := []struct {
		kind event.Kind
		want channels.Category
	}{
		{event.MemberDonated, channels.Donations},
		{event.MemberReceived, channels.Donations},
		{event.MemberJoined, channels.Welcome},
		{event.MemberLeft, channels.Welcome},
		{event.ClanPointsChanged, channels.Rank},
		{event.MemberTrophiesChanged, channels.Rank},
		{event.MemberBuilderTrophiesChanged, channels.Rank},
		{event.WarAttackRecorded, channels.Wars},
		{event.NewWarStarted, channels.Wars},
		{event.ClanGamesStarted, channels.Games},
		{event.ClanGamesEnded, channels.Games},
		{event.RaidWeekendStarted, channels.Raid},
		{event.RaidWeekendEnded, channels.Raid},
		{event.MaintenanceStarted, channels.Default},
		{event.MaintenanceEnded, channels.Default},
		{event.SeasonStarted, channels.Default},
	}
	for _, tc := range cases {
		if got := CategoryFor(tc.kind); got != tc.want {
			t.Fatalf("CategoryFor(%s) = %s, want %s", tc.kind, got, tc.want)
		}
	}
}
