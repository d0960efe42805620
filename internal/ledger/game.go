package ledger

import (
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/m-lima/elo-sub000/internal/util"
)

// A Game is a single pairwise result between two players. RatingOne and
// RatingTwo are the pre-game ratings of each player as of the last
// recomputation, RatingDelta is added to player one and subtracted from
// player two. Those three fields are never hand-edited outside a replay.
type Game struct {
	ID        int64
	PlayerOne util.UUIDAsBlob
	PlayerTwo util.UUIDAsBlob
	ScoreOne  uint8
	ScoreTwo  uint8

	RatingOne   float64
	RatingTwo   float64
	RatingDelta float64

	Challenge bool
	Deleted   bool

	// Millis is the caller-supplied event time, it alone decides rating
	// order. CreatedMs is the row insertion time and is never used for
	// ordering.
	Millis    int64
	CreatedMs int64
}

func NewGame(playerOne, playerTwo util.UUIDAsBlob, scoreOne, scoreTwo uint8, challenge bool, millis int64) Game {
	return Game{
		PlayerOne: playerOne,
		PlayerTwo: playerTwo,
		ScoreOne:  scoreOne,
		ScoreTwo:  scoreTwo,
		Challenge: challenge,
		Millis:    millis,
		CreatedMs: time.Now().UnixMilli(),
	}
}

func (g *Game) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Game").SetMap(squirrel.Eq{
		"PlayerOne":   g.PlayerOne,
		"PlayerTwo":   g.PlayerTwo,
		"ScoreOne":    g.ScoreOne,
		"ScoreTwo":    g.ScoreTwo,
		"RatingOne":   g.RatingOne,
		"RatingTwo":   g.RatingTwo,
		"RatingDelta": g.RatingDelta,
		"Challenge":   g.Challenge,
		"Deleted":     g.Deleted,
		"Millis":      g.Millis,
		"CreatedMs":   g.CreatedMs,
	}).ToSql()
	if err != nil {
		return err
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return err
	}

	g.ID, err = res.LastInsertId()

	return err
}

// updateFields overwrites the caller-editable columns. The rating columns are
// deliberately left out, only the recomputer writes those. The storage layer
// snapshots the prior row into GameHistory before this lands.
func (g *Game) updateFields(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("Game").SetMap(squirrel.Eq{
		"PlayerOne": g.PlayerOne,
		"PlayerTwo": g.PlayerTwo,
		"ScoreOne":  g.ScoreOne,
		"ScoreTwo":  g.ScoreTwo,
		"Challenge": g.Challenge,
		"Deleted":   g.Deleted,
		"Millis":    g.Millis,
	}).Where(`"Game"."ID" = ?`, g.ID).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getGameByID(q querier, id int64) (Game, error) {
	var ret Game
	query := `SELECT * FROM "Game" WHERE "Game"."ID" = ? LIMIT 1`
	if err := sqlx.Get(q, &ret, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Game{}, util.ErrNotFound
		}

		return Game{}, err
	}

	return ret, nil
}

// Games replay in ascending event time; equal timestamps fall back to the
// monotonic insertion id so the order is fully deterministic.
const gameReplayOrder = `ORDER BY "Game"."Millis" ASC, "Game"."ID" ASC`

func getGames(q querier) ([]Game, error) {
	var ret []Game
	query := `SELECT * FROM "Game" ` + gameReplayOrder
	if err := sqlx.Select(q, &ret, query); err != nil {
		return nil, err
	}

	return ret, nil
}

func getGamesFrom(q querier, millis int64) ([]Game, error) {
	var ret []Game
	query := `SELECT * FROM "Game" WHERE "Game"."Millis" >= ? ` + gameReplayOrder
	if err := sqlx.Select(q, &ret, query, millis); err != nil {
		return nil, err
	}

	return ret, nil
}

func getGamesBefore(q querier, millis int64) ([]Game, error) {
	var ret []Game
	query := `SELECT * FROM "Game" WHERE "Game"."Millis" < ? AND "Game"."Deleted" = 0 ` + gameReplayOrder
	if err := sqlx.Select(q, &ret, query, millis); err != nil {
		return nil, err
	}

	return ret, nil
}

func getGamesByIDs(q querier, ids []int64) ([]Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM "Game" WHERE "Game"."ID" IN(?) `+gameReplayOrder, ids)
	if err != nil {
		return nil, err
	}

	ret := make([]Game, 0, len(ids))
	if err := sqlx.Select(q, &ret, query, args...); err != nil {
		return nil, err
	}

	return ret, nil
}
