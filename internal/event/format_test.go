package event

import (
	"testing"
	"time"
)

func TestFormatTemplates(t *testing.T) {
	ends := time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"donated",
			Event{Kind: MemberDonated, MemberName: "Ash", ClanName: "Foo", Delta: 50},
			"Ash of Foo just donated 50 troops.",
		},
		{
			"received",
			Event{Kind: MemberReceived, MemberName: "Gary", ClanName: "Foo", Delta: 12},
			"Gary of Foo just received 12 troops.",
		},
		{
			"joined",
			Event{Kind: MemberJoined, MemberName: "Misty", ClanName: "Foo"},
			"Misty has joined Foo",
		},
		{
			"left",
			Event{Kind: MemberLeft, MemberName: "Misty", ClanName: "Foo"},
			"Misty has left Foo",
		},
		{
			"clan points",
			Event{Kind: ClanPointsChanged, ClanName: "Foo", Old: 40000, New: 40100},
			"Foo total trophies changed from 40000 to 40100",
		},
		{
			"member trophies",
			Event{Kind: MemberTrophiesChanged, MemberName: "Ash", Old: 3100, New: 3130},
			"Ash trophies changed from 3100 to 3130",
		},
		{
			"builder trophies",
			Event{Kind: MemberBuilderTrophiesChanged, MemberName: "Ash", Old: 2000, New: 1990},
			"Ash builder_base trophies changed from 2000 to 1990",
		},
		{
			"war attack",
			Event{
				Kind:        WarAttackRecorded,
				AttackOrder: 4,
				AttackerPos: 1, AttackerName: "Ash", AttackerClan: "Foo",
				DefenderPos: 7, DefenderName: "Gary", DefenderClan: "Bar",
			},
			"\tAttack number 4\n(1).Ash of Foo attacked (7).Gary of Bar",
		},
		{
			"new war",
			Event{Kind: NewWarStarted, OpponentName: "Bar"},
			"New war against Bar detected.",
		},
		{
			"games start",
			Event{Kind: ClanGamesStarted, WindowEndsAt: ends},
			"Clan games have started! Finish your challenges before 2025-06-30 08:00!",
		},
		{
			"raid start",
			Event{Kind: RaidWeekendStarted, WindowEndsAt: ends},
			"A new Raid Weekend started! Finish your attacks before 2025-06-30 08:00!",
		},
		{
			"season start",
			Event{Kind: SeasonStarted, WindowEndsAt: ends},
			"New season started, and will finish at 2025-06-30 08:00",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.ev); got != tc.want {
				t.Fatalf("Format() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	ev := Event{Kind: MemberDonated, MemberName: "Ash", ClanName: "Foo", Delta: 50}
	if Format(ev) != Format(ev) {
		t.Fatalf("formatting must be deterministic for identical events")
	}
}
