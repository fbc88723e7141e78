package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"persona-card-service/internal/app"
	"persona-card-service/internal/domain"
	"persona-card-service/internal/prompts"
)

type WSHandler struct {
	service  *app.CardService
	prompts  *prompts.Builder
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.CardService, builder *prompts.Builder) *WSHandler {
	return &WSHandler{
		service: service,
		prompts: builder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	Record     json.RawMessage `json:"record"`
	ModelLabel string          `json:"modelLabel"`
}

type joinedPayload struct {
	TargetID string `json:"targetId"`
}

type questionPayload struct {
	Question domain.Question `json:"question"`
	Prompt   string          `json:"prompt"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and streams card snapshots of
// one target. An empty targetId follows the draft.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	targetID := r.URL.Query().Get("targetId")
	if targetID == "" {
		targetID = domain.DraftTargetID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), targetID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// joined is queued before snapshots start flowing so it is always first.
	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{TargetID: targetID}}

	// A single writer goroutine owns the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// Target deleted; unblock the reader.
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "card", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || len(payload.Record) == 0 {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}}
				continue
			}
			res, err := h.service.Submit(r.Context(), targetID, payload.Record, payload.ModelLabel)
			if err != nil && res.Status != app.StatusRejected {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitResult", Payload: res}
		case "next":
			q, err := h.service.NextQuestion(r.Context(), targetID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			text, err := h.prompts.Question(q)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: questionPayload{Question: q, Prompt: text}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
