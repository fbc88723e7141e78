package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
)

// SessionInspector reports which cards currently have live subscribers.
type SessionInspector interface {
	Watched() []string
}

// liveChecker is implemented by stores that share liveness across instances.
type liveChecker interface {
	Live(ctx context.Context, targetID string) (bool, error)
}

// SessionsHandler serves operator views of the card channel.
type SessionsHandler struct {
	sessions SessionInspector
}

func NewSessionsHandler(sessions SessionInspector) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

type watchedResponse struct {
	Watched []string `json:"watched"`
}

type liveResponse struct {
	TargetID string `json:"targetId"`
	Live     bool   `json:"live"`
}

// List handles GET /sessions
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, watchedResponse{Watched: h.sessions.Watched()})
}

// Live handles GET /sessions/{id}. Shared stores answer for every instance;
// otherwise only this process is consulted.
func (h *SessionsHandler) Live(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if lc, ok := h.sessions.(liveChecker); ok {
		live, err := lc.Live(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{TargetID: id, Live: live})
		return
	}
	writeJSON(w, http.StatusOK, liveResponse{TargetID: id, Live: slices.Contains(h.sessions.Watched(), id)})
}
