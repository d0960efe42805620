package main

import (
	"context"
	"time"

	"github.com/m-lima/elo-sub000/internal/config"
	"github.com/m-lima/elo-sub000/internal/ledger"
)

func loadFixtures() error {
	cfg, err := config.NewFromUserConfigDir()
	if err != nil {
		return err
	}

	l, err := ledger.New("sqlite3", cfg.Database)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := context.Background()

	darunia, err := l.RegisterPlayer(ctx, "Darunia", "darunia@example.com", nil)
	if err != nil {
		return err
	}

	nabooru, err := l.RegisterPlayer(ctx, "Nabooru", "nabooru@example.com", &darunia.ID)
	if err != nil {
		return err
	}

	saria, err := l.RegisterPlayer(ctx, "Saria", "saria@example.com", &darunia.ID)
	if err != nil {
		return err
	}

	elo := ledger.Elo{K: cfg.EloK}
	now := time.Now().UnixMilli()

	for _, v := range []ledger.Game{
		ledger.NewGame(darunia.ID, nabooru.ID, 11, 7, false, now-3*24*60*60*1000),
		ledger.NewGame(nabooru.ID, saria.ID, 12, 10, false, now-2*24*60*60*1000),
		ledger.NewGame(saria.ID, darunia.ID, 11, 9, true, now-24*60*60*1000),
	} {
		if _, _, err := l.Register(ctx, v, cfg.SeedRating, elo); err != nil {
			return err
		}
	}

	return nil
}
