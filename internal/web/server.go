// Package web exposes the ledger over JSON. It maps ledger errors onto HTTP
// status codes and fans changed games out to a Broadcaster, the push
// transport behind that interface is somebody else's problem.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/m-lima/elo-sub000/internal/ledger"
	"github.com/m-lima/elo-sub000/internal/util"
)

// Broadcaster receives every game whose ratings changed after a successful
// mutation so connected clients can be told about it.
type Broadcaster interface {
	Broadcast(games []ledger.Game)
}

// LogBroadcaster is the default Broadcaster, it only logs. The real-time
// transport plugs in here.
type LogBroadcaster struct{}

func (LogBroadcaster) Broadcast(games []ledger.Game) {
	log.Printf("debug: broadcasting %d changed game(s)", len(games))
}

type Server struct {
	http        *http.Server
	ledger      *ledger.Ledger
	broadcaster Broadcaster

	// seedRating and updater parameterize every recomputation triggered
	// through this server.
	seedRating float64
	updater    ledger.RatingUpdater

	writeLimiter *rate.Limiter
}

func NewServer(l *ledger.Ledger, listen string, seedRating float64, updater ledger.RatingUpdater, broadcaster Broadcaster) *Server {
	if broadcaster == nil {
		broadcaster = LogBroadcaster{}
	}

	s := &Server{
		ledger:       l,
		broadcaster:  broadcaster,
		seedRating:   seedRating,
		updater:      updater,
		writeLimiter: rate.NewLimiter(rate.Limit(10), 20),
	}

	s.http = &http.Server{
		Addr:         listen,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
		Handler:      s.setupRouter(),
	}

	return s
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/", noContent)

	r.Get("/v1/games", s.getGames)
	r.Get("/v1/game/{id}/history", s.getGameHistory)
	r.Get("/v1/players", s.getPlayers)
	r.Get("/v1/player/{id}", s.getPlayer)
	r.Get("/v1/mutations", s.getMutations)

	r.Group(func(r chi.Router) {
		r.Use(s.throttleWrites)
		r.Post("/v1/games", s.postGame)
		r.Put("/v1/game/{id}", s.putGame)
		r.Post("/v1/refresh", s.postRefresh)
		r.Post("/v1/players", s.postPlayer)
	})

	return r
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) throttleWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.writeLimiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Serve(wg *sync.WaitGroup, done <-chan struct{}) {
	log.Println("info: starting HTTP server")
	wg.Add(1)
	defer wg.Done()

	go func() {
		err := s.http.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Println("info: HTTP server closed")
			return
		}

		log.Fatalf("webserver crashed: %s", err)
	}()

	<-done
	if err := s.http.Close(); err != nil {
		log.Printf("warning: unable to close webserver: %s", err)
	}
}

func (s *Server) response(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	response, err := json.Marshal(data)
	if err != nil {
		log.Printf("error: unable to marshal response: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Printf("error: unable to write response: %s", err)
	}
}

// error maps the ledger error kinds onto status codes. Business-rule
// messages are safe to forward, storage errors are not.
func (s *Server) error(w http.ResponseWriter, err error) {
	var invalid util.ErrInvalidValue
	var blank util.ErrBlankValue

	switch {
	case errors.As(err, &invalid), errors.As(err, &blank):
		s.response(w, http.StatusBadRequest, map[string]string{"Error": err.Error()})
	case errors.Is(err, util.ErrNotFound):
		s.response(w, http.StatusNotFound, map[string]string{"Error": err.Error()})
	case errors.Is(err, util.ErrAlreadyExists):
		s.response(w, http.StatusConflict, map[string]string{"Error": err.Error()})
	default:
		log.Printf("error: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Server) getMutations(w http.ResponseWriter, _ *http.Request) {
	s.response(w, http.StatusOK, map[string]uint64{"Mutations": s.ledger.Mutations()})
}

func urlID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, util.ErrNotFound
	}

	return id, nil
}
