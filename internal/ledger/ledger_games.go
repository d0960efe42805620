package ledger

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m-lima/elo-sub000/internal/util"
)

const millisPerDay = 24 * 60 * 60 * 1000

// validateGame applies the scoring policy. Pure, no I/O, checks run in a
// fixed order and the first failure wins.
func validateGame(playerOne, playerTwo util.UUIDAsBlob, scoreOne, scoreTwo uint8) error {
	switch {
	case playerOne == playerTwo:
		return util.ErrInvalidValue("Players cannot be equal")
	case scoreOne == scoreTwo:
		return util.ErrInvalidValue("Scores cannot be equal")
	case scoreOne > 12 || scoreTwo > 12:
		return util.ErrInvalidValue("Games cannot have a score larger than 12")
	case scoreOne < 11 && scoreTwo < 11:
		return util.ErrInvalidValue("Games must have a winner with at least 11 points")
	case (scoreOne == 12 && scoreTwo != 10) || (scoreTwo == 12 && scoreOne != 10):
		return util.ErrInvalidValue("Tie breaks require a 12x10 score")
	case (scoreOne == 11 && scoreTwo >= 11) || (scoreTwo == 11 && scoreOne >= 11):
		return util.ErrInvalidValue("There can only be one winner")
	}

	return nil
}

// ensureChallengeable enforces the one-challenge-per-day-per-pair rule
// against persisted state. The pair is unordered and the day is derived by
// truncating the event time to whole days. excludeID skips the game being
// edited so it doesn't collide with itself.
func ensureChallengeable(q querier, playerOne, playerTwo util.UUIDAsBlob, millis int64, excludeID int64) error {
	query := `SELECT COUNT(*) FROM "Game"
		WHERE "Game"."Challenge" = 1 AND "Game"."Deleted" = 0 AND "Game"."ID" != ?
		AND "Game"."Millis" / 86400000 = ?
		AND (("Game"."PlayerOne" = ? AND "Game"."PlayerTwo" = ?)
			OR ("Game"."PlayerOne" = ? AND "Game"."PlayerTwo" = ?))`

	var count int
	if err := sqlx.Get(
		q, &count, query,
		excludeID, millis/millisPerDay,
		playerOne, playerTwo, playerTwo, playerOne,
	); err != nil {
		return err
	}

	if count > 0 {
		return util.ErrInvalidValue("Players cannot challenge each other more than once a day")
	}

	return nil
}

// Register validates and inserts a new game, then replays every game from the
// new event time forward so ratings stay a function of event order. It
// returns the freshly rated game and every other game the replay changed.
func (l *Ledger) Register(
	ctx context.Context,
	game Game,
	defaultRating float64,
	updater RatingUpdater,
) (Game, []Game, error) {
	if err := validateGame(game.PlayerOne, game.PlayerTwo, game.ScoreOne, game.ScoreTwo); err != nil {
		return Game{}, nil, err
	}

	var changed []Game
	if err := l.mutation(ctx, func(tx *sqlx.Tx) error {
		if _, err := getPlayerByID(tx, game.PlayerOne); err != nil {
			return err
		}
		if _, err := getPlayerByID(tx, game.PlayerTwo); err != nil {
			return err
		}

		if game.Challenge {
			if err := ensureChallengeable(tx, game.PlayerOne, game.PlayerTwo, game.Millis, 0); err != nil {
				return err
			}
		}

		// Placeholder zero ratings, the replay below covers the new row and
		// fills them in.
		if err := game.insert(tx); err != nil {
			return err
		}

		var err error
		changed, err = recomputeRatings(tx, &game.Millis, defaultRating, updater)
		if err != nil {
			return err
		}

		game, err = getGameByID(tx, game.ID)

		return err
	}); err != nil {
		return Game{}, nil, err
	}

	others := changed[:0:0]
	for _, v := range changed {
		if v.ID != game.ID {
			others = append(others, v)
		}
	}

	return game, others, nil
}

// Update overwrites a game in place and forces a recomputation covering both
// its old and new position in the trajectory. It returns every game whose
// ratings changed, including the edited one when its own ratings moved.
func (l *Ledger) Update(
	ctx context.Context,
	game Game,
	defaultRating float64,
	updater RatingUpdater,
) ([]Game, error) {
	if err := validateGame(game.PlayerOne, game.PlayerTwo, game.ScoreOne, game.ScoreTwo); err != nil {
		return nil, err
	}

	var changed []Game
	if err := l.mutation(ctx, func(tx *sqlx.Tx) error {
		old, err := getGameByID(tx, game.ID)
		if err != nil {
			return err
		}

		if game.Challenge && !game.Deleted {
			if err := ensureChallengeable(tx, game.PlayerOne, game.PlayerTwo, game.Millis, game.ID); err != nil {
				return err
			}
		}

		if err := game.updateFields(tx); err != nil {
			return err
		}

		from := game.Millis
		if old.Millis < from {
			from = old.Millis
		}

		changed, err = recomputeRatings(tx, &from, defaultRating, updater)

		return err
	}); err != nil {
		return nil, err
	}

	return changed, nil
}

// List returns every game, deleted ones included, in replay order. Filtering
// deleted rows out for display is a caller concern.
func (l *Ledger) List(ctx context.Context) ([]Game, error) {
	var ret []Game
	if err := l.transaction(ctx, func(tx *sqlx.Tx) (err error) {
		ret, err = getGames(tx)
		return err
	}); err != nil {
		return nil, err
	}

	return ret, nil
}

// History returns the prior snapshots of one game, newest first.
func (l *Ledger) History(ctx context.Context, gameID int64) ([]GameHistory, error) {
	var ret []GameHistory
	if err := l.transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := getGameByID(tx, gameID); err != nil {
			return err
		}

		var err error
		ret, err = getHistoryByGameID(tx, gameID)

		return err
	}); err != nil {
		return nil, err
	}

	return ret, nil
}

// Refresh replays the whole table from scratch and applies any drift it
// finds. With no intervening mutation a second call returns nothing. Useful
// for offline consistency repair and rating-formula migrations.
func (l *Ledger) Refresh(
	ctx context.Context,
	defaultRating float64,
	updater RatingUpdater,
) ([]Game, error) {
	var changed []Game
	if err := l.mutation(ctx, func(tx *sqlx.Tx) (err error) {
		changed, err = recomputeRatings(tx, nil, defaultRating, updater)
		return err
	}); err != nil {
		return nil, err
	}

	return changed, nil
}
