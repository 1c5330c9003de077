// Package source is the seam for the game-state poller. The production
// poller (API auth, diff detection) plugs in behind Source; this package
// ships only the JSONL replay source used for development and integration
// tests.
package source

import (
	"context"

	"clanwatch/internal/clash"
)

// Source produces detected changes and submits them to the pipeline.
// Run blocks until the source is exhausted or ctx is cancelled.
type Source interface {
	Run(ctx context.Context, submit func(clash.Change)) error
}
