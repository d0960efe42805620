package ledger

import (
	"math"
	"strconv"
	"strings"

	"github.com/m-lima/elo-sub000/internal/util"
)

// ratingEpsilon bounds how far a stored rating may drift from its recomputed
// value before the row counts as changed.
const ratingEpsilon = 1e-6

type pendingRating struct {
	id          int64
	ratingOne   float64
	ratingTwo   float64
	ratingDelta float64
}

// recomputeRatings replays games in event-time order from an optional lower
// bound, re-deriving each player's pre-game rating and delta, then writes the
// rows that actually changed in one batched update and returns them.
//
// Replaying the entire table from scratch (from == nil) always yields the
// same ratings as replaying only the affected suffix with a correct seed.
func recomputeRatings(q querier, from *int64, defaultRating float64, updater RatingUpdater) ([]Game, error) {
	ratings := map[util.UUIDAsBlob]float64{}

	var window []Game
	if from == nil {
		var err error
		window, err = getGames(q)
		if err != nil {
			return nil, err
		}
	} else {
		if err := seedRatings(q, *from, ratings); err != nil {
			return nil, err
		}

		var err error
		window, err = getGamesFrom(q, *from)
		if err != nil {
			return nil, err
		}
	}

	rating := func(id util.UUIDAsBlob) float64 {
		if r, ok := ratings[id]; ok {
			return r
		}

		return defaultRating
	}

	var pending []pendingRating
	for k := range window {
		game := &window[k]
		one, two := rating(game.PlayerOne), rating(game.PlayerTwo)

		// A deleted game stays in the trajectory but contributes nothing.
		var delta float64
		if !game.Deleted {
			delta = updater.Update(one, two, game.ScoreOne > game.ScoreTwo, game.Challenge)
		}

		ratings[game.PlayerOne] = one + delta
		ratings[game.PlayerTwo] = two - delta

		if math.Abs(game.RatingOne-one) > ratingEpsilon ||
			math.Abs(game.RatingTwo-two) > ratingEpsilon ||
			math.Abs(game.RatingDelta-delta) > ratingEpsilon {
			pending = append(pending, pendingRating{
				id:          game.ID,
				ratingOne:   one,
				ratingTwo:   two,
				ratingDelta: delta,
			})
		}
	}

	return applyRatings(q, pending)
}

// seedRatings fills the map with, for every player, the rating produced by
// their most recent non-deleted game before the window. Games are scanned in
// replay order so later games overwrite earlier ones; players without a prior
// game are left unseeded and fall back to the default on first appearance.
func seedRatings(q querier, from int64, ratings map[util.UUIDAsBlob]float64) error {
	prior, err := getGamesBefore(q, from)
	if err != nil {
		return err
	}

	for k := range prior {
		ratings[prior[k].PlayerOne] = prior[k].RatingOne + prior[k].RatingDelta
		ratings[prior[k].PlayerTwo] = prior[k].RatingTwo - prior[k].RatingDelta
	}

	return nil
}

// applyRatings issues a single CASE-mapped bulk update for the changed rows
// and returns them. No write happens for an empty diff, which is what makes
// Refresh and repeated Update calls idempotent.
func applyRatings(q querier, pending []pendingRating) ([]Game, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	var query strings.Builder
	args := make([]interface{}, 0, len(pending)*6+len(pending))
	ids := make([]int64, 0, len(pending))

	query.WriteString(`UPDATE "Game" SET "RatingOne" = CASE "ID"`)
	for _, v := range pending {
		query.WriteString(` WHEN ? THEN ?`)
		args = append(args, v.id, v.ratingOne)
	}

	query.WriteString(` END, "RatingTwo" = CASE "ID"`)
	for _, v := range pending {
		query.WriteString(` WHEN ? THEN ?`)
		args = append(args, v.id, v.ratingTwo)
	}

	query.WriteString(` END, "RatingDelta" = CASE "ID"`)
	for _, v := range pending {
		query.WriteString(` WHEN ? THEN ?`)
		args = append(args, v.id, v.ratingDelta)
	}

	query.WriteString(` END WHERE "ID" IN(`)
	for k, v := range pending {
		if k > 0 {
			query.WriteString(",")
		}
		query.WriteString(strconv.FormatInt(v.id, 10))
		ids = append(ids, v.id)
	}
	query.WriteString(`)`)

	if _, err := q.Exec(query.String(), args...); err != nil {
		return nil, err
	}

	return getGamesByIDs(q, ids)
}
