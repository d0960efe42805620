package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/m-lima/elo-sub000/internal/config"
	"github.com/m-lima/elo-sub000/internal/ledger"
	"github.com/m-lima/elo-sub000/internal/web"
)

func serve() error {
	cfg, err := config.NewFromUserConfigDir()
	if err != nil {
		return err
	}

	l, err := ledger.New("sqlite3", cfg.Database)
	if err != nil {
		return err
	}

	server := web.NewServer(l, cfg.Listen, cfg.SeedRating, ledger.Elo{K: cfg.EloK}, nil)

	done := make(chan struct{})
	signaled := make(chan os.Signal, 1)
	signal.Notify(signaled, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	go server.Serve(&wg, done)

	sig := <-signaled
	log.Printf("received signal %d", sig)
	close(done)
	wg.Wait()

	log.Print("shutdown complete")

	return l.Close()
}
