package web

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/m-lima/elo-sub000/internal/ledger"
	"github.com/m-lima/elo-sub000/internal/util"
)

type gamePayload struct {
	PlayerOne uuid.UUID
	PlayerTwo uuid.UUID
	ScoreOne  uint8
	ScoreTwo  uint8
	Challenge bool
	Deleted   bool
	Millis    int64
}

func (s *Server) getGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.ledger.List(r.Context())
	if err != nil {
		s.error(w, err)
		return
	}

	s.response(w, http.StatusOK, games)
}

func (s *Server) postGame(w http.ResponseWriter, r *http.Request) {
	var payload gamePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.error(w, util.ErrInvalidValue("malformed game"))
		return
	}

	game := ledger.NewGame(
		util.UUIDAsBlob(payload.PlayerOne),
		util.UUIDAsBlob(payload.PlayerTwo),
		payload.ScoreOne,
		payload.ScoreTwo,
		payload.Challenge,
		payload.Millis,
	)

	game, others, err := s.ledger.Register(r.Context(), game, s.seedRating, s.updater)
	if err != nil {
		s.error(w, err)
		return
	}

	s.broadcaster.Broadcast(append([]ledger.Game{game}, others...))

	s.response(w, http.StatusCreated, struct {
		Game    ledger.Game
		Changed []ledger.Game
	}{game, others})
}

func (s *Server) putGame(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		s.error(w, err)
		return
	}

	var payload gamePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.error(w, util.ErrInvalidValue("malformed game"))
		return
	}

	game := ledger.Game{
		ID:        id,
		PlayerOne: util.UUIDAsBlob(payload.PlayerOne),
		PlayerTwo: util.UUIDAsBlob(payload.PlayerTwo),
		ScoreOne:  payload.ScoreOne,
		ScoreTwo:  payload.ScoreTwo,
		Challenge: payload.Challenge,
		Deleted:   payload.Deleted,
		Millis:    payload.Millis,
	}

	changed, err := s.ledger.Update(r.Context(), game, s.seedRating, s.updater)
	if err != nil {
		s.error(w, err)
		return
	}

	s.broadcaster.Broadcast(changed)

	s.response(w, http.StatusOK, changed)
}

func (s *Server) getGameHistory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		s.error(w, err)
		return
	}

	history, err := s.ledger.History(r.Context(), id)
	if err != nil {
		s.error(w, err)
		return
	}

	s.response(w, http.StatusOK, history)
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request) {
	changed, err := s.ledger.Refresh(r.Context(), s.seedRating, s.updater)
	if err != nil {
		s.error(w, err)
		return
	}

	if len(changed) > 0 {
		s.broadcaster.Broadcast(changed)
	}

	s.response(w, http.StatusOK, changed)
}
