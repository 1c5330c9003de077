// Package clash defines the boundary types raised by the game-state poller.
//
// The poller itself (API auth, polling cadence, diff detection) lives behind
// the source.Source interface; this package only fixes the shape of what it
// hands over.
package clash

import "time"

// ChangeKind identifies which upstream condition a Change describes.
type ChangeKind string

const (
	MemberDonations       ChangeKind = "member_donations"
	MemberReceived        ChangeKind = "member_received"
	MemberJoined          ChangeKind = "member_joined"
	MemberLeft            ChangeKind = "member_left"
	ClanPoints            ChangeKind = "clan_points"
	MemberTrophies        ChangeKind = "member_trophies"
	MemberBuilderTrophies ChangeKind = "member_builder_trophies"
	WarAttack             ChangeKind = "war_attack"
	NewWar                ChangeKind = "new_war"
	MaintenanceStart      ChangeKind = "maintenance_start"
	MaintenanceEnd        ChangeKind = "maintenance_end"
	SeasonStart           ChangeKind = "season_start"
	ClanGamesStart        ChangeKind = "clan_games_start"
	ClanGamesEnd          ChangeKind = "clan_games_end"
	RaidWeekendStart      ChangeKind = "raid_weekend_start"
	RaidWeekendEnd        ChangeKind = "raid_weekend_end"
)

// Snapshot is an immutable point-in-time view of a tracked subject.
// Only the fields a given ChangeKind needs are populated; the rest stay zero.
type Snapshot struct {
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`
	ClanTag  string `json:"clan_tag,omitempty"`
	ClanName string `json:"clan_name,omitempty"`

	Donations       int `json:"donations,omitempty"`
	Received        int `json:"received,omitempty"`
	Trophies        int `json:"trophies,omitempty"`
	BuilderTrophies int `json:"builder_trophies,omitempty"`
	Points          int `json:"points,omitempty"`

	// War fields.
	OpponentName string    `json:"opponent_name,omitempty"`
	WarEndsAt    time.Time `json:"war_ends_at,omitempty"`
	AttackOrder  int       `json:"attack_order,omitempty"`
	AttackerTag  string    `json:"attacker_tag,omitempty"`
	AttackerName string    `json:"attacker_name,omitempty"`
	AttackerPos  int       `json:"attacker_pos,omitempty"`
	AttackerClan string    `json:"attacker_clan,omitempty"`
	DefenderTag  string    `json:"defender_tag,omitempty"`
	DefenderName string    `json:"defender_name,omitempty"`
	DefenderPos  int       `json:"defender_pos,omitempty"`
	DefenderClan string    `json:"defender_clan,omitempty"`

	// Boundary-condition fields (maintenance/season/games/raid windows).
	At           time.Time `json:"at,omitempty"`
	WindowEndsAt time.Time `json:"window_ends_at,omitempty"`
	NextStartsAt time.Time `json:"next_starts_at,omitempty"`
}

// Change is one detected upstream change: an old/new snapshot pair for
// counter kinds, or a single boundary snapshot in New with Old left zero.
type Change struct {
	Kind ChangeKind `json:"kind"`
	Old  Snapshot   `json:"old,omitempty"`
	New  Snapshot   `json:"new"`
}

// SubjectKey identifies the logical counter a Change belongs to. Changes
// sharing a key must be processed in arrival order; deltas are computed
// against the immediately preceding snapshot, so reordering corrupts them.
func (c Change) SubjectKey() string {
	return string(c.Kind) + "|" + c.New.ClanTag + "|" + c.New.Tag
}
