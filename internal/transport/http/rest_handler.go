package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"persona-card-service/internal/app"
	"persona-card-service/internal/prompts"
)

const maxBodyBytes = 1 << 20

// RESTHandler exposes the card use cases as JSON endpoints.
type RESTHandler struct {
	service *app.CardService
	prompts *prompts.Builder
}

func NewRESTHandler(service *app.CardService, builder *prompts.Builder) *RESTHandler {
	return &RESTHandler{service: service, prompts: builder}
}

type nameRequest struct {
	Name string `json:"name"`
}

type promptResponse struct {
	QuestionID string `json:"questionId,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
	Prompt     string `json:"prompt"`
}

// Questions handles GET /questions
func (h *RESTHandler) Questions(w http.ResponseWriter, r *http.Request) {
	bank, err := h.service.Bank(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// QuestionPrompt handles GET /questions/{id}/prompt
func (h *RESTHandler) QuestionPrompt(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Question(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	text, err := h.prompts.Question(q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{QuestionID: q.ID, Prompt: text})
}

// Primer handles GET /prompts/primer
func (h *RESTHandler) Primer(w http.ResponseWriter, r *http.Request) {
	text, err := h.prompts.Primer()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: text})
}

// ListTargets handles GET /targets
func (h *RESTHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.ListTargets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// CreateTarget handles POST /targets
func (h *RESTHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.service.CreateTarget(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// RenameTarget handles PATCH /targets/{id}
func (h *RESTHandler) RenameTarget(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.service.RenameTarget(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTarget handles DELETE /targets/{id}
func (h *RESTHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTarget(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles POST /targets/{id}/answers. The body is the raw model
// response; ?model= labels the model that produced it.
func (h *RESTHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	res, err := h.service.Submit(r.Context(), mux.Vars(r)["id"], raw, r.URL.Query().Get("model"))
	switch {
	case res.Status == app.StatusRejected:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case err != nil:
		writeDomainError(w, err)
	case res.Status == app.StatusDuplicate:
		writeJSON(w, http.StatusOK, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// Card handles GET /targets/{id}/card
func (h *RESTHandler) Card(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Card(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Next handles GET /targets/{id}/next
func (h *RESTHandler) Next(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.NextQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Overview handles GET /targets/{id}/prompt
func (h *RESTHandler) Overview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	records, err := h.service.Records(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	text, err := h.prompts.Overview(records)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{TargetID: id, Prompt: text})
}

// Export handles GET /targets/{id}/export
func (h *RESTHandler) Export(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.service.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="persona-`+pkg.Target.ID+`.json"`)
	writeJSON(w, http.StatusOK, pkg)
}

// PromoteDraft handles POST /targets/draft/promote
func (h *RESTHandler) PromoteDraft(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.service.PromoteDraft(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Import handles POST /import
func (h *RESTHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	results, err := h.service.Import(r.Context(), raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, results)
}

// decodeBody reads an optional JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}
