package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"persona-card-service/internal/app"
	"persona-card-service/internal/metrics"
	"persona-card-service/internal/prompts"
)

// NewRouter wires the REST, WebSocket, metrics and session endpoints.
func NewRouter(service *app.CardService, builder *prompts.Builder, sessions SessionInspector) http.Handler {
	rest := NewRESTHandler(service, builder)
	ws := NewWSHandler(service, builder)
	ops := NewSessionsHandler(sessions)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/ws", ws.ServeWS).Methods("GET")
	r.HandleFunc("/sessions", ops.List).Methods("GET")
	r.HandleFunc("/sessions/{id}", ops.Live).Methods("GET")

	r.HandleFunc("/questions", rest.Questions).Methods("GET")
	r.HandleFunc("/questions/{id}/prompt", rest.QuestionPrompt).Methods("GET")
	r.HandleFunc("/prompts/primer", rest.Primer).Methods("GET")

	r.HandleFunc("/targets", rest.ListTargets).Methods("GET")
	r.HandleFunc("/targets", rest.CreateTarget).Methods("POST")
	r.HandleFunc("/targets/draft/promote", rest.PromoteDraft).Methods("POST")
	r.HandleFunc("/targets/{id}", rest.RenameTarget).Methods("PATCH")
	r.HandleFunc("/targets/{id}", rest.DeleteTarget).Methods("DELETE")
	r.HandleFunc("/targets/{id}/answers", rest.SubmitAnswer).Methods("POST")
	r.HandleFunc("/targets/{id}/card", rest.Card).Methods("GET")
	r.HandleFunc("/targets/{id}/next", rest.Next).Methods("GET")
	r.HandleFunc("/targets/{id}/prompt", rest.Overview).Methods("GET")
	r.HandleFunc("/targets/{id}/export", rest.Export).Methods("GET")

	r.HandleFunc("/import", rest.Import).Methods("POST")
	return r
}
