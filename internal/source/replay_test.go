package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clanwatch/internal/clash"
	"clanwatch/pkg/logx"
)

func TestReplayReadsChangesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.jsonl")
	content := `# recorded session
{"kind":"member_donations","old":{"tag":"#AAA","donations":10},"new":{"tag":"#AAA","clan_tag":"#CLAN","donations":15}}

{"kind":"member_donations","old":{"tag":"#AAA","donations":15},"new":{"tag":"#AAA","clan_tag":"#CLAN","donations":20}}
not json at all
{"kind":"new_war","new":{"clan_tag":"#CLAN","opponent_name":"Bar"}}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got []clash.Change
	r := NewReplay(path, logx.Nop())
	if err := r.Run(context.Background(), func(c clash.Change) { got = append(got, c) }); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 changes (comment, blank and malformed lines skipped), got %d", len(got))
	}
	if got[0].New.Donations != 15 || got[1].New.Donations != 20 {
		t.Fatalf("changes out of order: %+v", got[:2])
	}
	if got[2].Kind != clash.NewWar || got[2].New.OpponentName != "Bar" {
		t.Fatalf("last change: %+v", got[2])
	}
}

func TestReplayMissingFile(t *testing.T) {
	r := NewReplay(filepath.Join(t.TempDir(), "nope.jsonl"), logx.Nop())
	if err := r.Run(context.Background(), func(clash.Change) {}); err == nil {
		t.Fatalf("missing file must error")
	}
}
