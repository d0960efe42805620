// Package ledger registers and edits games and keeps every player's rating
// trajectory consistent with the chronological order of games, even when
// games are inserted or edited out of order or soft-deleted.
package ledger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/m-lima/elo-sub000/internal/util"
)

// RatingUpdater computes the rating delta a game grants player one (and takes
// from player two). Implementations must be pure so a replay stays
// deterministic.
type RatingUpdater interface {
	Update(ratingOne, ratingTwo float64, oneWon, challenge bool) float64
}

type Ledger struct {
	db *sqlx.DB

	// mutations counts successful commits, it has no concurrency-control
	// role and only exists as an observability signal.
	mutations atomic.Uint64
}

func New(sqlDriver string, sqlDSN string) (*Ledger, error) {
	// Why even bother converting names? A single greppable string across all
	// your source code is better than any odd conversion scheme you could ever
	// come up with.
	// HACK: This is global but putting this in init() makes test ugly.
	// As only the Ledger relies on the DB, this seems like an okay-ish place.
	sqlx.NameMapper = func(v string) string { return v }

	db, err := sqlx.Connect(sqlDriver, sqlDSN)
	if err != nil {
		return nil, err
	}

	// WAL plus a single physical connection serializes every mutation at the
	// storage layer, no in-process locking is needed on top.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("unable to enable WAL: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Ledger{
		db: db,
	}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Mutations returns how many mutating operations have committed since the
// process started.
func (l *Ledger) Mutations() uint64 {
	return l.mutations.Load()
}

func (l *Ledger) transaction(ctx context.Context, cb util.TransactionCallback) error {
	return util.Transaction(ctx, l.db, cb)
}

// mutation wraps a transaction and bumps the mutation counter when it
// commits.
func (l *Ledger) mutation(ctx context.Context, cb util.TransactionCallback) error {
	if err := l.transaction(ctx, cb); err != nil {
		return err
	}

	l.mutations.Add(1)

	return nil
}

// querier is the narrow query/exec capability the recompute helpers need. It
// is satisfied by both *sqlx.DB and *sqlx.Tx so the replay logic is written
// once and runs identically standalone or nested in a transaction.
type querier interface {
	sqlx.Queryer
	sqlx.Execer
}
