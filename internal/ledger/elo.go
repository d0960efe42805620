package ledger

import "math"

// DefaultEloK is the K-factor used when none is configured.
const DefaultEloK = 32

// Elo is the classic Elo formula as a RatingUpdater. Challenge games weigh
// double.
type Elo struct {
	K float64
}

func NewElo() Elo {
	return Elo{K: DefaultEloK}
}

func (e Elo) Update(ratingOne, ratingTwo float64, oneWon, challenge bool) float64 {
	expected := 1.0 / (1.0 + math.Pow(10, (ratingTwo-ratingOne)/400.0))

	var score float64
	if oneWon {
		score = 1.0
	}

	k := e.K
	if challenge {
		k *= 2
	}

	return k * (score - expected)
}
