package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 16 << 10

type themeRequest struct {
	Theme string `json:"theme"`
}

type voteRequest struct {
	VoteType  string `json:"vote_type"`
	Side      string `json:"side"`
	RequestID string `json:"request_id"`
}

func (v voteRequest) parse() (model.VoteType, model.Side, error) {
	vt, err := model.ParseVoteType(v.VoteType)
	if err != nil {
		return "", "", err
	}
	side, err := model.ParseSide(v.Side)
	if err != nil {
		return "", "", err
	}
	return vt, side, nil
}

type undoRequest struct {
	RequestID string `json:"request_id"`
}

// sessionResponse is the session state as returned by every session route.
type sessionResponse struct {
	ID string `json:"id"`
	duel.State
	CanVote bool `json:"can_vote"`
}

type mutationResponse struct {
	sessionResponse
	Applied   bool `json:"applied"`
	Duplicate bool `json:"duplicate"`
}

func newSessionResponse(id string, st duel.State) sessionResponse {
	return sessionResponse{ID: id, State: st, CanVote: st.CanVote()}
}

// SessionsHandler serves the duel session routes.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions. The body is optional.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, st, err := h.deps.CreateSession(r.Context(), req.Theme)
	if status, code, ok := lookupStatus(err); ok {
		writeError(w, status, code, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	if err != nil {
		writeJSON(w, loadStatus(err), newSessionResponse(id, st))
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(id, st))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.deps.Session(r.Context(), id)
	h.respond(w, id, st, err)
}

// HandleTheme handles POST /sessions/{id}/theme.
func (h *SessionsHandler) HandleTheme(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req themeRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	st, err := h.deps.SetTheme(r.Context(), id, req.Theme)
	h.respond(w, id, st, err)
}

// HandleNext handles POST /sessions/{id}/next.
func (h *SessionsHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.deps.Next(r.Context(), id)
	h.respond(w, id, st, err)
}

// HandleVote handles POST /sessions/{id}/vote.
func (h *SessionsHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req voteRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	vt, side, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	res, err := h.deps.Vote(r.Context(), id, vt, side, strings.TrimSpace(req.RequestID))
	h.respondMutation(w, id, res, err)
}

// HandleUndo handles POST /sessions/{id}/undo. The body is optional.
func (h *SessionsHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req undoRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.Undo(r.Context(), id, strings.TrimSpace(req.RequestID))
	h.respondMutation(w, id, res, err)
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.deps.Reset(r.Context(), id)
	h.respond(w, id, st, err)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.deps.DeleteSession(r.Context(), r.PathValue("id"))
	if status, code, ok := lookupStatus(err); ok {
		writeError(w, status, code, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) respond(w http.ResponseWriter, id string, st duel.State, err error) {
	if status, code, ok := lookupStatus(err); ok {
		writeError(w, status, code, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = loadStatus(err)
	}
	writeJSON(w, status, newSessionResponse(id, st))
}

func (h *SessionsHandler) respondMutation(w http.ResponseWriter, id string, res types.Result, err error) {
	if status, code, ok := lookupStatus(err); ok {
		writeError(w, status, code, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = loadStatus(err)
	}
	writeJSON(w, status, mutationResponse{
		sessionResponse: newSessionResponse(id, res.State),
		Applied:         res.Applied,
		Duplicate:       res.Duplicate,
	})
}

// decodeBody reads a JSON body into v. When optional is set an empty body is
// accepted and leaves v untouched.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
