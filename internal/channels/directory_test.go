package channels

import (
	"testing"

	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

func desc(id, name string) transport.ChannelDescriptor {
	return transport.ChannelDescriptor{ID: transport.Destination(id), Name: name}
}

func TestRebuildSubstringMatch(t *testing.T) {
	d := NewDirectory(logx.Nop())
	d.Rebuild([]transport.ChannelDescriptor{
		desc("1", "clan-general"),
		desc("2", "Donations-Log"),
		desc("3", "war-room"),
	})

	got, ok := d.Resolve(Default)
	if !ok || got != "1" {
		t.Fatalf("Default = %q, %v; want channel 1", got, ok)
	}
	if got, ok := d.Resolve(Donations); !ok || got != "2" {
		t.Fatalf("Donations match must be case-insensitive, got %q, %v", got, ok)
	}
	if got, ok := d.Resolve(Wars); !ok || got != "3" {
		t.Fatalf("Wars = %q, %v", got, ok)
	}
	if _, ok := d.Resolve(Raid); ok {
		t.Fatalf("Raid should be unset")
	}
}

func TestRebuildPriorityOrder(t *testing.T) {
	// "general-raid-chat" matches both the Default and Raid keywords.
	// Default has priority, so the channel must land on Default and leave
	// the Raid slot for a real raid channel.
	d := NewDirectory(logx.Nop())
	d.Rebuild([]transport.ChannelDescriptor{
		desc("10", "general-raid-chat"),
		desc("11", "raid-weekend"),
	})

	if got, ok := d.Resolve(Default); !ok || got != "10" {
		t.Fatalf("Default = %q, %v; want 10", got, ok)
	}
	if got, ok := d.Resolve(Raid); !ok || got != "11" {
		t.Fatalf("Raid = %q, %v; want 11 (slot must not be stolen)", got, ok)
	}
}

func TestRebuildLastMatchWins(t *testing.T) {
	d := NewDirectory(logx.Nop())
	d.Rebuild([]transport.ChannelDescriptor{
		desc("1", "general-one"),
		desc("2", "general-two"),
	})
	if got, _ := d.Resolve(Default); got != "2" {
		t.Fatalf("Default = %q, want the most recently scanned match", got)
	}
}

func TestResolveUnbuiltDirectory(t *testing.T) {
	d := NewDirectory(logx.Nop())
	if _, ok := d.Resolve(Default); ok {
		t.Fatalf("unbuilt directory must resolve nothing")
	}
	if d.Built() {
		t.Fatalf("Built() must be false before the first Rebuild")
	}
}

func TestRebuildReplacesAtomically(t *testing.T) {
	d := NewDirectory(logx.Nop())
	d.Rebuild([]transport.ChannelDescriptor{
		desc("1", "general"),
		desc("2", "donations"),
	})
	// Second build has no donations channel: the old entry must not leak
	// through a partial update.
	d.Rebuild([]transport.ChannelDescriptor{desc("3", "general")})

	if got, _ := d.Resolve(Default); got != "3" {
		t.Fatalf("Default = %q, want 3", got)
	}
	if _, ok := d.Resolve(Donations); ok {
		t.Fatalf("stale Donations entry survived the rebuild")
	}
}
