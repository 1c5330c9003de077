// Package channels maps semantic notification categories to chat
// destinations.
package channels

import (
	"strings"
	"sync"
	"sync/atomic"

	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

// Category is a semantic notification bucket.
type Category string

const (
	Default   Category = "default"
	Wars      Category = "wars"
	Raid      Category = "raid"
	Games     Category = "games"
	Rank      Category = "rank"
	Donations Category = "donations"
	Welcome   Category = "welcome"
)

// keywords lists the name keywords in match priority order. A channel is
// assigned to the first category whose keyword its name contains, so a name
// like "general-raid-chat" lands on Default and cannot steal the Raid slot.
var keywords = []struct {
	cat     Category
	keyword string
}{
	{Default, "general"},
	{Donations, "donations"},
	{Games, "game"},
	{Raid, "raid"},
	{Rank, "rank"},
	{Wars, "war"},
	{Welcome, "welcome"},
}

// Directory resolves categories to destinations.
//
// Resolve is a wait-free lookup against a snapshot map; Rebuild swaps the
// whole snapshot at once, never leaving a partially updated directory behind.
// The zero value is an unbuilt directory: every Resolve misses.
type Directory struct {
	snap     atomic.Value // stores map[Category]transport.Destination
	log      logx.Logger
	warnOnce sync.Once
}

func NewDirectory(log logx.Logger) *Directory {
	return &Directory{log: log}
}

// Rebuild scans the channel list and atomically installs the new mapping.
// When several channels match the same category, the last one scanned wins.
func (d *Directory) Rebuild(chs []transport.ChannelDescriptor) {
	next := make(map[Category]transport.Destination, len(keywords))
	for _, ch := range chs {
		name := strings.ToLower(ch.Name)
		for _, kw := range keywords {
			if strings.Contains(name, kw.keyword) {
				next[kw.cat] = ch.ID
				if !d.log.IsZero() {
					d.log.Info("channel assigned",
						logx.String("category", string(kw.cat)),
						logx.String("channel", ch.Name),
						logx.String("dest", string(ch.ID)))
				}
				break
			}
		}
	}
	if _, ok := next[Default]; !ok && !d.log.IsZero() {
		d.log.Error("no default channel matched; routing degrades to log-only")
	}
	d.snap.Store(next)
}

// Resolve looks up the destination for a category. Absence is a normal
// result, not an error.
func (d *Directory) Resolve(cat Category) (transport.Destination, bool) {
	v := d.snap.Load()
	m, ok := v.(map[Category]transport.Destination)
	if !ok {
		d.warnOnce.Do(func() {
			if !d.log.IsZero() {
				d.log.Warn("channel directory not built yet; resolving nothing")
			}
		})
		return "", false
	}
	dest, ok := m[cat]
	return dest, ok
}

// Built reports whether Rebuild has completed at least once.
func (d *Directory) Built() bool {
	_, ok := d.snap.Load().(map[Category]transport.Destination)
	return ok
}
