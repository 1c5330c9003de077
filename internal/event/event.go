// Package event turns old/new snapshot pairs into typed delta events and
// renders them into the fixed notification templates.
package event

import "time"

// Kind enumerates the delta events the pipeline knows how to route.
type Kind string

const (
	MemberDonated                Kind = "member_donated"
	MemberReceived               Kind = "member_received"
	MemberJoined                 Kind = "member_joined"
	MemberLeft                   Kind = "member_left"
	ClanPointsChanged            Kind = "clan_points_changed"
	MemberTrophiesChanged        Kind = "member_trophies_changed"
	MemberBuilderTrophiesChanged Kind = "member_builder_trophies_changed"
	WarAttackRecorded            Kind = "war_attack_recorded"
	NewWarStarted                Kind = "new_war_started"
	MaintenanceStarted           Kind = "maintenance_started"
	MaintenanceEnded             Kind = "maintenance_ended"
	SeasonStarted                Kind = "season_started"
	ClanGamesStarted             Kind = "clan_games_started"
	ClanGamesEnded               Kind = "clan_games_ended"
	RaidWeekendStarted           Kind = "raid_weekend_started"
	RaidWeekendEnded             Kind = "raid_weekend_ended"
)

// StampFormat is the ordinal, sortable timestamp layout used for persisted
// rows and audit fields.
const StampFormat = "2006-01-02 15:04:05"

// Event is an immutable record of one detected change. Only the fields the
// Kind needs are populated. At is assigned at classification time.
type Event struct {
	Kind Kind
	At   time.Time

	ClanTag  string
	ClanName string

	MemberTag  string
	MemberName string

	// Counter movement: Delta is always New-Old, negative values preserved.
	Delta int
	Old   int
	New   int

	// War fields.
	OpponentName string
	AttackOrder  int
	AttackerName string
	AttackerPos  int
	AttackerClan string
	DefenderTag  string
	DefenderName string
	DefenderPos  int
	DefenderClan string
	AttackerTag  string

	// Boundary windows.
	StartedAt    time.Time
	WindowEndsAt time.Time
	NextStartsAt time.Time
}

// Stamp returns At in StampFormat.
func (e Event) Stamp() string { return e.At.Format(StampFormat) }

// Subject returns the identifier most useful in logs: the member tag when
// the event concerns a member, otherwise the clan tag.
func (e Event) Subject() string {
	if e.MemberTag != "" {
		return e.MemberTag
	}
	return e.ClanTag
}
