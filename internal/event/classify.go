package event

import (
	"time"

	"clanwatch/internal/clash"
)

// Classify maps one upstream change to at most one Event.
//
// It is pure and total: deltas are computed as new minus old with zero and
// negative values preserved (the bot observes upstream counters, it never
// corrects them), and an unrecognized ChangeKind yields (zero, false) instead
// of an error so unknown upstream kinds can never take the pipeline down.
func Classify(c clash.Change) (Event, bool) {
	return classifyAt(c, time.Now())
}

func classifyAt(c clash.Change, now time.Time) (Event, bool) {
	ev := Event{
		At:         now,
		ClanTag:    c.New.ClanTag,
		ClanName:   c.New.ClanName,
		MemberTag:  c.New.Tag,
		MemberName: c.New.Name,
	}

	switch c.Kind {
	case clash.MemberDonations:
		ev.Kind = MemberDonated
		ev.Old, ev.New = c.Old.Donations, c.New.Donations
	case clash.MemberReceived:
		ev.Kind = MemberReceived
		ev.Old, ev.New = c.Old.Received, c.New.Received
	case clash.MemberJoined:
		ev.Kind = MemberJoined
	case clash.MemberLeft:
		ev.Kind = MemberLeft
	case clash.ClanPoints:
		ev.Kind = ClanPointsChanged
		ev.Old, ev.New = c.Old.Points, c.New.Points
	case clash.MemberTrophies:
		ev.Kind = MemberTrophiesChanged
		ev.Old, ev.New = c.Old.Trophies, c.New.Trophies
	case clash.MemberBuilderTrophies:
		ev.Kind = MemberBuilderTrophiesChanged
		ev.Old, ev.New = c.Old.BuilderTrophies, c.New.BuilderTrophies
	case clash.WarAttack:
		ev.Kind = WarAttackRecorded
		ev.AttackOrder = c.New.AttackOrder
		ev.AttackerTag = c.New.AttackerTag
		ev.AttackerName = c.New.AttackerName
		ev.AttackerPos = c.New.AttackerPos
		ev.AttackerClan = c.New.AttackerClan
		ev.DefenderTag = c.New.DefenderTag
		ev.DefenderName = c.New.DefenderName
		ev.DefenderPos = c.New.DefenderPos
		ev.DefenderClan = c.New.DefenderClan
		ev.WindowEndsAt = c.New.WarEndsAt
	case clash.NewWar:
		ev.Kind = NewWarStarted
		ev.OpponentName = c.New.OpponentName
	case clash.MaintenanceStart:
		ev.Kind = MaintenanceStarted
		ev.StartedAt = c.New.At
	case clash.MaintenanceEnd:
		ev.Kind = MaintenanceEnded
		ev.StartedAt = c.New.At
	case clash.SeasonStart:
		ev.Kind = SeasonStarted
		ev.WindowEndsAt = c.New.WindowEndsAt
	case clash.ClanGamesStart:
		ev.Kind = ClanGamesStarted
		ev.WindowEndsAt = c.New.WindowEndsAt
	case clash.ClanGamesEnd:
		ev.Kind = ClanGamesEnded
		ev.NextStartsAt = c.New.NextStartsAt
	case clash.RaidWeekendStart:
		ev.Kind = RaidWeekendStarted
		ev.WindowEndsAt = c.New.WindowEndsAt
	case clash.RaidWeekendEnd:
		ev.Kind = RaidWeekendEnded
		ev.NextStartsAt = c.New.NextStartsAt
	default:
		return Event{}, false
	}

	ev.Delta = ev.New - ev.Old
	return ev, true
}
