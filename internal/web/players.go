package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/m-lima/elo-sub000/internal/util"
)

type playerPayload struct {
	Name      string
	Email     string
	InvitedBy *uuid.UUID
}

func (s *Server) getPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.ledger.Players(r.Context())
	if err != nil {
		s.error(w, err)
		return
	}

	s.response(w, http.StatusOK, players)
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.error(w, util.ErrNotFound)
		return
	}

	player, err := s.ledger.Player(r.Context(), util.UUIDAsBlob(id))
	if err != nil {
		s.error(w, err)
		return
	}

	s.response(w, http.StatusOK, player)
}

func (s *Server) postPlayer(w http.ResponseWriter, r *http.Request) {
	var payload playerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.error(w, util.ErrInvalidValue("malformed player"))
		return
	}

	var inviter *util.UUIDAsBlob
	if payload.InvitedBy != nil {
		id := util.UUIDAsBlob(*payload.InvitedBy)
		inviter = &id
	}

	player, err := s.ledger.RegisterPlayer(r.Context(), payload.Name, payload.Email, inviter)
	if err != nil {
		s.error(w, err)
		return
	}

	s.response(w, http.StatusCreated, player)
}
