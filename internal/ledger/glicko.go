package ledger

import (
	glicko "github.com/zelenin/go-glicko2"
)

// Glicko adapts Glicko-2 to the symmetric-delta contract of RatingUpdater:
// both players are treated as carrying the base deviation and volatility and
// the delta is taken from player one's side of a single-match rating period.
// It mostly exists to prove the recomputer is formula-agnostic.
type Glicko struct{}

func (Glicko) Update(ratingOne, ratingTwo float64, oneWon, challenge bool) float64 {
	playerOne := glicko.NewPlayer(glicko.NewRating(ratingOne, glicko.RATING_BASE_RD, glicko.RATING_BASE_SIGMA))
	playerTwo := glicko.NewPlayer(glicko.NewRating(ratingTwo, glicko.RATING_BASE_RD, glicko.RATING_BASE_SIGMA))

	result := glicko.MATCH_RESULT_WIN
	if !oneWon {
		result = glicko.MATCH_RESULT_LOSS
	}

	period := glicko.NewRatingPeriod()
	period.AddMatch(playerOne, playerTwo, result)
	period.Calculate()

	return playerOne.Rating().R() - ratingOne
}
