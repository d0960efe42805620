package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	glicko "github.com/zelenin/go-glicko2"

	"github.com/m-lima/elo-sub000/internal/util"
)

// A Player is a competitor that can appear in games. The stored rating state
// is Glicko-2-shaped and only serves as an opaque default seed for players
// with no game history, once games exist the ledger derives ratings from the
// replay alone.
type Player struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Name      string
	Email     string
	InvitedBy util.NullUUIDAsBlob

	Rating     float64
	Deviation  float64
	Volatility float64
}

func NewPlayer(name, email string) Player {
	return Player{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Name:      name,
		Email:     email,

		Rating:     glicko.RATING_BASE_R,
		Deviation:  glicko.RATING_BASE_RD,
		Volatility: glicko.RATING_BASE_SIGMA,
	}
}

func (p *Player) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Player").SetMap(squirrel.Eq{
		"ID":         p.ID,
		"CreatedAt":  p.CreatedAt,
		"Name":       p.Name,
		"Email":      p.Email,
		"InvitedBy":  p.InvitedBy,
		"Rating":     p.Rating,
		"Deviation":  p.Deviation,
		"Volatility": p.Volatility,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return util.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func getPlayerByID(q querier, id util.UUIDAsBlob) (Player, error) {
	var ret Player
	query := `SELECT * FROM "Player" WHERE "Player"."ID" = ? LIMIT 1`
	if err := sqlx.Get(q, &ret, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, util.ErrNotFound
		}

		return Player{}, err
	}

	return ret, nil
}

func getPlayers(q querier) ([]Player, error) {
	var ret []Player
	query := `SELECT * FROM "Player" ORDER BY "Player"."CreatedAt" ASC, "Player"."Name" ASC`
	if err := sqlx.Select(q, &ret, query); err != nil {
		return nil, err
	}

	return ret, nil
}

// RegisterPlayer creates a new player with default Glicko-2-shaped seed
// state. inviter, when set, records who invited them.
func (l *Ledger) RegisterPlayer(ctx context.Context, name, email string, inviter *util.UUIDAsBlob) (Player, error) {
	if strings.TrimSpace(name) == "" {
		return Player{}, util.ErrBlankValue("name")
	}
	if strings.TrimSpace(email) == "" {
		return Player{}, util.ErrBlankValue("email")
	}

	player := NewPlayer(name, email)
	if inviter != nil {
		player.InvitedBy = util.NullUUIDAsBlob{UUID: *inviter, Valid: true}
	}

	if err := l.mutation(ctx, func(tx *sqlx.Tx) error {
		if inviter != nil {
			if _, err := getPlayerByID(tx, *inviter); err != nil {
				return err
			}
		}

		return player.insert(tx)
	}); err != nil {
		return Player{}, err
	}

	return player, nil
}

func (l *Ledger) Player(ctx context.Context, id util.UUIDAsBlob) (Player, error) {
	var ret Player
	if err := l.transaction(ctx, func(tx *sqlx.Tx) (err error) {
		ret, err = getPlayerByID(tx, id)
		return err
	}); err != nil {
		return Player{}, err
	}

	return ret, nil
}

func (l *Ledger) Players(ctx context.Context) ([]Player, error) {
	var ret []Player
	if err := l.transaction(ctx, func(tx *sqlx.Tx) (err error) {
		ret, err = getPlayers(tx)
		return err
	}); err != nil {
		return nil, err
	}

	return ret, nil
}
