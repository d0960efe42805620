package ledger

import (
	"github.com/jmoiron/sqlx"

	"github.com/m-lima/elo-sub000/internal/util"
)

// A GameHistory row is the state a game had before an edit overwrote it. The
// storage layer captures these via trigger before any caller-editable column
// changes, the ledger itself only ever reads them.
type GameHistory struct {
	ID     int64
	GameID int64

	PlayerOne util.UUIDAsBlob
	PlayerTwo util.UUIDAsBlob
	ScoreOne  uint8
	ScoreTwo  uint8

	RatingOne   float64
	RatingTwo   float64
	RatingDelta float64

	Challenge bool
	Deleted   bool

	Millis    int64
	CreatedMs int64

	// RecordedMs is when the snapshot itself was taken.
	RecordedMs int64
}

func getHistoryByGameID(q querier, gameID int64) ([]GameHistory, error) {
	var ret []GameHistory
	query := `SELECT * FROM "GameHistory" WHERE "GameHistory"."GameID" = ?
		ORDER BY "GameHistory"."RecordedMs" DESC, "GameHistory"."ID" DESC`
	if err := sqlx.Select(q, &ret, query, gameID); err != nil {
		return nil, err
	}

	return ret, nil
}
