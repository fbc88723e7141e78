package http

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketSubmitFlow(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "joined")
	if payload["targetId"] != "draft" {
		t.Fatalf("expected draft target, got %v", payload["targetId"])
	}
	_, payload = readNext(conn, t, "card")
	if payload["answered"] != float64(0) {
		t.Fatalf("expected empty card first, got %v", payload["answered"])
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"record":     json.RawMessage(answerJSON),
			"modelLabel": "model-a",
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	resultSeen := false
	cardSeen := false
	for i := 0; i < 2; i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "submitResult":
			resultSeen = payload["status"] == "saved"
		case "card":
			cardSeen = payload["answered"] == float64(1)
		}
	}
	if !resultSeen || !cardSeen {
		t.Fatalf("expected saved submitResult and card, got submitResult=%v card=%v", resultSeen, cardSeen)
	}

	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write duplicate: %v", err)
	}
	_, payload = readNext(conn, t, "submitResult")
	if payload["status"] != "duplicate" {
		t.Fatalf("expected duplicate, got %v", payload["status"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("write next: %v", err)
	}
	_, payload = readNext(conn, t, "question")
	prompt, _ := payload["prompt"].(string)
	question, _ := payload["question"].(map[string]any)
	if question == nil || !strings.Contains(prompt, "Question ID: "+question["id"].(string)) {
		t.Fatalf("expected rendered prompt for the next question, got %v", payload)
	}
}

func TestWebSocketRejectsInvalidMessages(t *testing.T) {
	server, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?targetId=draft", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "joined")
	readNext(conn, t, "card")

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")

	bad := map[string]any{
		"type":    "submit",
		"payload": map[string]any{"record": map[string]any{"schema_version": "persona.schema.v9"}},
	}
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, payload := readNext(conn, t, "submitResult")
	if payload["status"] != "rejected" || payload["errors"] == nil {
		t.Fatalf("expected rejected result with errors, got %v", payload)
	}
}

func TestWebSocketUnknownTarget(t *testing.T) {
	server, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?targetId=nobody", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_, payload := readNext(conn, t, "error")
	if !strings.Contains(payload["message"].(string), "not found") {
		t.Fatalf("expected not found message, got %v", payload)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
