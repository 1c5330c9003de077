package event

import "fmt"

// windowTimeFormat is how window boundaries are shown to humans.
const windowTimeFormat = "2006-01-02 15:04"

// Format renders an Event into its notification text. One fixed template per
// kind; it never fails on a valid event and performs no I/O.
func Format(e Event) string {
	switch e.Kind {
	case MemberDonated:
		return fmt.Sprintf("%s of %s just donated %d troops.", e.MemberName, e.ClanName, e.Delta)
	case MemberReceived:
		return fmt.Sprintf("%s of %s just received %d troops.", e.MemberName, e.ClanName, e.Delta)
	case MemberJoined:
		return fmt.Sprintf("%s has joined %s", e.MemberName, e.ClanName)
	case MemberLeft:
		return fmt.Sprintf("%s has left %s", e.MemberName, e.ClanName)
	case ClanPointsChanged:
		return fmt.Sprintf("%s total trophies changed from %d to %d", e.ClanName, e.Old, e.New)
	case MemberTrophiesChanged:
		return fmt.Sprintf("%s trophies changed from %d to %d", e.MemberName, e.Old, e.New)
	case MemberBuilderTrophiesChanged:
		return fmt.Sprintf("%s builder_base trophies changed from %d to %d", e.MemberName, e.Old, e.New)
	case WarAttackRecorded:
		return fmt.Sprintf("\tAttack number %d\n(%d).%s of %s attacked (%d).%s of %s",
			e.AttackOrder,
			e.AttackerPos, e.AttackerName, e.AttackerClan,
			e.DefenderPos, e.DefenderName, e.DefenderClan)
	case NewWarStarted:
		return fmt.Sprintf("New war against %s detected.", e.OpponentName)
	case MaintenanceStarted:
		return "Maintenance has started."
	case MaintenanceEnded:
		return fmt.Sprintf("Maintenance has ended; it started at %s", e.StartedAt.Format(windowTimeFormat))
	case SeasonStarted:
		return fmt.Sprintf("New season started, and will finish at %s", e.WindowEndsAt.Format(windowTimeFormat))
	case ClanGamesStarted:
		return fmt.Sprintf("Clan games have started! Finish your challenges before %s!", e.WindowEndsAt.Format(windowTimeFormat))
	case ClanGamesEnded:
		return fmt.Sprintf("Clan games have ended. The next ones will start at %s", e.NextStartsAt.Format(windowTimeFormat))
	case RaidWeekendStarted:
		return fmt.Sprintf("A new Raid Weekend started! Finish your attacks before %s!", e.WindowEndsAt.Format(windowTimeFormat))
	case RaidWeekendEnded:
		return fmt.Sprintf("The Raid Weekend has ended. Next one will start at %s", e.NextStartsAt.Format(windowTimeFormat))
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Subject())
	}
}
