package ledger // nolint:testpackage

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"

	"github.com/m-lima/elo-sub000/internal/util"
)

const testSeed = 1500.0

func createTestLedger(t *testing.T) *Ledger {
	t.Helper()

	f, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() {
		os.Remove(path)
	})

	migrator, err := migrate.New(
		"file://../../resources/migrations",
		"sqlite3://"+path,
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatal(err)
	}
	migrator.Close()

	ledger, err := New("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})

	return ledger
}

func createTestPlayers(t *testing.T, l *Ledger, names ...string) []Player {
	t.Helper()

	ret := make([]Player, 0, len(names))
	for _, v := range names {
		player, err := l.RegisterPlayer(context.Background(), v, v+"@example.com", nil)
		if err != nil {
			t.Fatal(err)
		}
		ret = append(ret, player)
	}

	return ret
}

func day(n int) int64 {
	return int64(n) * millisPerDay
}

func TestRegisterFirstGame(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game, others, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	if game.RatingOne != testSeed || game.RatingTwo != testSeed {
		t.Errorf("expected both pre-game ratings to be the seed, got %f and %f", game.RatingOne, game.RatingTwo)
	}
	if math.Abs(game.RatingDelta-16) > ratingEpsilon {
		t.Errorf("expected an even-win delta of 16, got %f", game.RatingDelta)
	}
	if len(others) != 0 {
		t.Errorf("expected no other changed games, got %d", len(others))
	}
}

func TestRegisterChainsRatings(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru", "Saria")
	ctx := context.Background()

	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}

	game, others, err := l.Register(ctx, NewGame(players[0].ID, players[2].ID, 11, 0, false, day(2)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(game.RatingOne-1516) > ratingEpsilon {
		t.Errorf("expected the winner to carry 1516 into the second game, got %f", game.RatingOne)
	}
	if game.RatingTwo != testSeed {
		t.Errorf("expected a fresh player to start at the seed, got %f", game.RatingTwo)
	}
	if len(others) != 0 {
		t.Errorf("expected no other changed games, got %d", len(others))
	}
}

func TestRegisterUnknownPlayer(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia")
	ctx := context.Background()

	_, _, err := l.Register(ctx, NewGame(players[0].ID, util.NewUUIDAsBlob(), 11, 0, false, day(1)), testSeed, NewElo())
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChallengeThrottle(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()
	hour := int64(60 * 60 * 1000)

	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 3, true, day(5)+10*hour), testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}

	// Same pair, same calendar date, either orientation.
	expected := "Players cannot challenge each other more than once a day"
	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 5, true, day(5)+20*hour), testSeed, NewElo()); err == nil || err.Error() != expected {
		t.Errorf("expected challenge throttle, got %v", err)
	}
	if _, _, err := l.Register(ctx, NewGame(players[1].ID, players[0].ID, 11, 5, true, day(5)+20*hour), testSeed, NewElo()); err == nil || err.Error() != expected {
		t.Errorf("expected challenge throttle for the reversed pair, got %v", err)
	}

	// A plain game on the same date is fine.
	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 5, false, day(5)+20*hour), testSeed, NewElo()); err != nil {
		t.Errorf("expected a non-challenge game to pass, got %v", err)
	}

	// The next calendar date is fine.
	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 5, true, day(6)+hour), testSeed, NewElo()); err != nil {
		t.Errorf("expected a challenge on the next date to pass, got %v", err)
	}
}

func TestChallengeEditDoesNotSelfConflict(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 3, true, day(5)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	// Editing the challenge's own score must not trip the daily throttle.
	game.ScoreTwo = 7
	if _, err := l.Update(ctx, game, testSeed, NewElo()); err != nil {
		t.Errorf("expected edit of the same challenge to pass, got %v", err)
	}
}

func TestOutOfOrderConvergence(t *testing.T) {
	ctx := context.Background()

	games := func(p []Player) []Game {
		return []Game{
			NewGame(p[0].ID, p[1].ID, 11, 0, false, day(1)),
			NewGame(p[1].ID, p[2].ID, 11, 5, false, day(2)),
			NewGame(p[0].ID, p[2].ID, 12, 10, false, day(3)),
			NewGame(p[1].ID, p[0].ID, 11, 9, true, day(4)),
		}
	}

	register := func(t *testing.T, l *Ledger, games []Game) []Game {
		for _, v := range games {
			if _, _, err := l.Register(ctx, v, testSeed, NewElo()); err != nil {
				t.Fatal(err)
			}
		}

		list, err := l.List(ctx)
		if err != nil {
			t.Fatal(err)
		}

		return list
	}

	forward := createTestLedger(t)
	forwardGames := register(t, forward, games(createTestPlayers(t, forward, "Darunia", "Nabooru", "Saria")))

	backward := createTestLedger(t)
	in := games(createTestPlayers(t, backward, "Darunia", "Nabooru", "Saria"))
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	backwardGames := register(t, backward, in)

	if len(forwardGames) != len(backwardGames) {
		t.Fatalf("expected %d games, got %d", len(forwardGames), len(backwardGames))
	}

	// Both ledgers hold the same multiset of games, the rating triplets must
	// agree game for game regardless of insertion order.
	for k := range forwardGames {
		f, b := forwardGames[k], backwardGames[k]
		if f.Millis != b.Millis {
			t.Fatalf("game #%d: replay order diverged", k)
		}

		if math.Abs(f.RatingOne-b.RatingOne) > ratingEpsilon ||
			math.Abs(f.RatingTwo-b.RatingTwo) > ratingEpsilon ||
			math.Abs(f.RatingDelta-b.RatingDelta) > ratingEpsilon {
			t.Errorf(
				"game #%d: expected (%f, %f, %f), got (%f, %f, %f)",
				k,
				f.RatingOne, f.RatingTwo, f.RatingDelta,
				b.RatingOne, b.RatingTwo, b.RatingDelta,
			)
		}
	}

	// Out-of-order insertion already converged, a full replay finds no drift.
	changed, err := backward.Refresh(ctx, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 0 {
		t.Errorf("expected no drift after convergence, got %d changed games", len(changed))
	}
}

func TestRefreshRepairsDriftOnce(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 7, false, day(2)), testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}

	// Simulate drift, eg. a rating-formula migration left stale deltas. The
	// rating columns are not trigger-captured so this stays out of history.
	if _, err := l.db.Exec(`UPDATE "Game" SET "RatingDelta" = 999 WHERE "ID" = ?`, game.ID); err != nil {
		t.Fatal(err)
	}

	changed, err := l.Refresh(ctx, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 1 || changed[0].ID != game.ID {
		t.Fatalf("expected exactly the drifted game to change, got %v", changed)
	}
	if math.Abs(changed[0].RatingDelta-16) > ratingEpsilon {
		t.Errorf("expected the delta to be repaired to 16, got %f", changed[0].RatingDelta)
	}

	changed, err = l.Refresh(ctx, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 0 {
		t.Errorf("expected the second refresh to be a no-op, got %d changed games", len(changed))
	}
}

func TestSoftDeletePropagates(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	first, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 7, false, day(2)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if second.RatingOne <= testSeed {
		t.Fatalf("expected the second game to start above the seed, got %f", second.RatingOne)
	}

	first.Deleted = true
	changed, err := l.Update(ctx, first, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	byID := map[int64]Game{}
	for _, v := range changed {
		byID[v.ID] = v
	}

	deleted, ok := byID[first.ID]
	if !ok {
		t.Fatal("expected the deleted game to be in the changed set")
	}
	if deleted.RatingDelta != 0 {
		t.Errorf("expected a deleted game to contribute no delta, got %f", deleted.RatingDelta)
	}

	later, ok := byID[second.ID]
	if !ok {
		t.Fatal("expected the later game to be recomputed")
	}
	if later.RatingOne != testSeed || later.RatingTwo != testSeed {
		t.Errorf("expected the later game to fall back to seed ratings, got %f and %f", later.RatingOne, later.RatingTwo)
	}

	// The row is soft-deleted, it still shows up in List.
	list, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected the deleted game to remain listed, got %d games", len(list))
	}
}

func TestUpdateEarlierGameRevisesLater(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	first, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 7, false, day(2)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	// Flip the outcome of the earlier game.
	first.ScoreOne, first.ScoreTwo = 9, 11
	changed, err := l.Update(ctx, first, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	var revised *Game
	for k := range changed {
		if changed[k].ID == second.ID {
			revised = &changed[k]
		}
	}

	if revised == nil {
		t.Fatal("expected the later game to reappear in the changed set")
	}
	if math.Abs(revised.RatingOne-1484) > ratingEpsilon || math.Abs(revised.RatingTwo-1516) > ratingEpsilon {
		t.Errorf("expected revised pre-game ratings 1484 and 1516, got %f and %f", revised.RatingOne, revised.RatingTwo)
	}
}

func TestUpdateIdempotence(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	// Re-submitting the same field values changes no ratings.
	changed, err := l.Update(ctx, game, testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 0 {
		t.Errorf("expected an identical update to change nothing, got %d games", len(changed))
	}
}

func TestUpdateUnknownGame(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game := NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1))
	game.ID = 42

	if _, err := l.Update(ctx, game, testSeed, NewElo()); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHistorySnapshots(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	game, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo())
	if err != nil {
		t.Fatal(err)
	}

	game.ScoreTwo = 5
	if _, err := l.Update(ctx, game, testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}
	game.ScoreTwo = 9
	if _, err := l.Update(ctx, game, testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}

	history, err := l.History(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(history))
	}

	// Newest first: the state before the second edit, then the original.
	if history[0].ScoreTwo != 5 {
		t.Errorf("expected the newest snapshot to hold the first edit, got %d", history[0].ScoreTwo)
	}
	if history[1].ScoreTwo != 0 {
		t.Errorf("expected the oldest snapshot to hold the original, got %d", history[1].ScoreTwo)
	}
}

func TestHistoryUnknownGame(t *testing.T) {
	l := createTestLedger(t)

	if _, err := l.History(context.Background(), 42); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMutationCounter(t *testing.T) {
	l := createTestLedger(t)
	players := createTestPlayers(t, l, "Darunia", "Nabooru")
	ctx := context.Background()

	before := l.Mutations()

	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 0, false, day(1)), testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}
	if l.Mutations() != before+1 {
		t.Errorf("expected the counter to bump on register, got %d", l.Mutations())
	}

	// A doomed write never opens a transaction, the counter stays put.
	if _, _, err := l.Register(ctx, NewGame(players[0].ID, players[1].ID, 11, 11, false, day(1)), testSeed, NewElo()); err == nil {
		t.Fatal("expected a validation failure")
	}
	if l.Mutations() != before+1 {
		t.Errorf("expected the counter to stay put on failure, got %d", l.Mutations())
	}

	if _, err := l.Refresh(ctx, testSeed, NewElo()); err != nil {
		t.Fatal(err)
	}
	if l.Mutations() != before+2 {
		t.Errorf("expected the counter to bump on refresh, got %d", l.Mutations())
	}
}

func TestRegisterPlayerValidation(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	if _, err := l.RegisterPlayer(ctx, "  ", "x@example.com", nil); !errors.As(err, new(util.ErrBlankValue)) {
		t.Errorf("expected a blank-name error, got %v", err)
	}
	if _, err := l.RegisterPlayer(ctx, "Darunia", "", nil); !errors.As(err, new(util.ErrBlankValue)) {
		t.Errorf("expected a blank-email error, got %v", err)
	}

	if _, err := l.RegisterPlayer(ctx, "Darunia", "darunia@example.com", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RegisterPlayer(ctx, "Impostor", "darunia@example.com", nil); !errors.Is(err, util.ErrAlreadyExists) {
		t.Errorf("expected a duplicate-email error, got %v", err)
	}
}

func TestRegisterPlayerWithInviter(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	inviter, err := l.RegisterPlayer(ctx, "Darunia", "darunia@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}

	invited, err := l.RegisterPlayer(ctx, "Saria", "saria@example.com", &inviter.ID)
	if err != nil {
		t.Fatal(err)
	}

	// The back-reference round-trips through storage.
	stored, err := l.Player(ctx, invited.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.InvitedBy.Valid || stored.InvitedBy.UUID != inviter.ID {
		t.Errorf("expected the inviter to be stored, got %v", stored.InvitedBy)
	}

	uninvited, err := l.Player(ctx, inviter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if uninvited.InvitedBy.Valid {
		t.Errorf("expected no inviter on the first player, got %v", uninvited.InvitedBy)
	}

	// An unknown inviter aborts the registration.
	ghost := util.NewUUIDAsBlob()
	if _, err := l.RegisterPlayer(ctx, "Ruto", "ruto@example.com", &ghost); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown inviter, got %v", err)
	}
}
