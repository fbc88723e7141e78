package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"persona-card-service/internal/app"
	"persona-card-service/internal/bank"
	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
	"persona-card-service/internal/infra/memory"
	"persona-card-service/internal/prompts"
)

const answerJSON = `{
  "schema_version": "persona.schema.v3",
  "question_id": "Q01",
  "axes": {"practicality": 70, "empathy": 70, "knowledge": 70, "wisdom": 70},
  "meta": {"calibration": 75, "frivolity": 5},
  "confidence": {"practicality": 80, "empathy": 80, "knowledge": 80, "wisdom": 80, "calibration": 80},
  "effort": {"points_awarded": 40, "why": "Clear tradeoffs."},
  "signals": {"key_quotes": [], "observations": []},
  "risk_flags": {"missed_point": false, "incoherent": false, "likely_trolling": false, "delusion_risk": false, "cruelty_risk": false},
  "needs_clarification": {"is_needed": false, "why": "", "re_explain": "", "re_ask_prompt": ""},
  "notes": {"one_sentence_profile": "", "what_shifted_this_score": ""}
}`

func newTestServer(t *testing.T) (*httptest.Server, *app.CardService) {
	t.Helper()
	sessions := memory.NewSessionStore()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string][]domain.Question{
		bank.DefaultID: bank.Default(2),
	}), time.Minute)
	service := app.NewCardService(
		engine.New(engine.Options{}),
		memory.NewCardStore(),
		banks,
		sessions,
		app.WithPresets(bank.DefaultPresets()),
	)
	server := httptest.NewServer(NewRouter(service, prompts.New("", 0), sessions))
	t.Cleanup(server.Close)
	return server, service
}
