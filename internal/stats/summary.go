package stats

import (
	"context"
	"time"

	"clanwatch/internal/event"
)

// DonorTotal aggregates one member's donated troops over a period.
type DonorTotal struct {
	Tag   string
	Name  string
	Total int
}

// TrophyLatest is a member's most recent observed trophy count plus how many
// changes were seen over a period.
type TrophyLatest struct {
	Tag      string
	Name     string
	Trophies int
	Changes  int
}

// DonationTotals sums donated troops per member since the given time,
// largest first. Receipt rows (placeholder donor) are excluded.
func (r *Recorder) DonationTotals(ctx context.Context, since time.Time) ([]DonorTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT donor_tag, donor_name, SUM(amount)
		 FROM donations
		 WHERE date >= ? AND donor_tag != ?
		 GROUP BY donor_tag, donor_name
		 ORDER BY SUM(amount) DESC`,
		since.Format(event.StampFormat), ReceivedTag,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DonorTotal
	for rows.Next() {
		var t DonorTotal
		if err := rows.Scan(&t.Tag, &t.Name, &t.Total); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TrophySummary reports each member's latest trophy count and change count
// since the given time, ordered by trophies descending.
func (r *Recorder) TrophySummary(ctx context.Context, since time.Time) ([]TrophyLatest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT player_tag, player_name, trophies, cnt FROM (
		     SELECT player_tag, player_name, trophies, date,
		            COUNT(*) OVER (PARTITION BY player_tag) AS cnt,
		            ROW_NUMBER() OVER (PARTITION BY player_tag ORDER BY date DESC) AS rn
		     FROM trophies WHERE date >= ?
		 ) WHERE rn = 1
		 ORDER BY trophies DESC`,
		since.Format(event.StampFormat),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrophyLatest
	for rows.Next() {
		var t TrophyLatest
		if err := rows.Scan(&t.Tag, &t.Name, &t.Trophies, &t.Changes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
