package ledger

import (
	"context"
	"errors"

	"finreport/internal/core"
)

// Ports for ledger adapters.
type (
	// Source loads the full ledger in file order.
	Source interface {
		Load(ctx context.Context) (core.Ledger, error)
	}

	// Replacer swaps the stored ledger for a new one in a single step and
	// returns the number of rows written.
	Replacer interface {
		ReplaceAll(ctx context.Context, l core.Ledger) (int, error)
	}
)

var (
	ErrMissingColumns = errors.New("ledger header is missing required columns")
	ErrUnsupported    = errors.New("unsupported ledger file type")
)
