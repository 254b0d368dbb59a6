package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/conversation"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	messageRepo "github.com/aniladanir/webhook-inbox/internal/repository/message"
	"github.com/aniladanir/webhook-inbox/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const inboundDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "e1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550001111", "phone_number_id": "p1"},
        "contacts": [{"wa_id": "c1", "profile": {"name": "Ada"}}],
        "messages": [{"id": "m1", "from": "c1", "timestamp": "1700000000", "type": "text", "text": {"body": "hi"}}]
      }
    }]
  }]
}`

// messageView mirrors the JSON of a message without the polymorphic payload.
type messageView struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Direction      string `json:"direction"`
	Status         string `json:"status"`
	Recipient      string `json:"recipient"`
	SenderProfile  *struct {
		DisplayName string `json:"displayName"`
	} `json:"senderProfile"`
}

type summaryView struct {
	ConversationID string      `json:"conversationId"`
	LastMessage    messageView `json:"lastMessage"`
	MessageCount   int         `json:"messageCount"`
}

func newTestHandler(t *testing.T) (*Handler, *service.Pipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := messageRepo.NewMemoryRepository()
	pipeline := service.NewPipeline(repo, conversation.NewScanIndex(repo), logger, service.Options{
		Operator: domain.Profile{DisplayName: "Operator", Identity: "15550001111"},
	})
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("start pipeline: %v", err)
	}
	t.Cleanup(pipeline.Stop)
	return NewHttpHandler(":0", pipeline, "secret", logger), pipeline
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestWebhookDeliveryIsQueryable(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodPost, "/webhooks", inboundDelivery)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	var report service.Report
	decode(t, resp, &report)
	if report.DeliveryID == "" || report.Count(domain.OutcomeInserted) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	// redelivery is acknowledged without a second row
	if resp := doRequest(t, h, http.MethodPost, "/webhooks", inboundDelivery); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/conversations", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var summaries []summaryView
	decode(t, resp, &summaries)
	if len(summaries) != 1 || summaries[0].ConversationID != "c1" || summaries[0].MessageCount != 1 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	resp = doRequest(t, h, http.MethodGet, "/conversations/c1/messages?limit=10", "")
	var messages []messageView
	decode(t, resp, &messages)
	if len(messages) != 1 || messages[0].ID != "m1" {
		t.Fatalf("unexpected messages %+v", messages)
	}
	if messages[0].Recipient != "15550001111" || messages[0].SenderProfile == nil || messages[0].SenderProfile.DisplayName != "Ada" {
		t.Fatalf("unexpected message fields %+v", messages[0])
	}

	if resp := doRequest(t, h, http.MethodGet, "/conversations/c1", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for known conversation, got %d", resp.Code)
	}
	if resp := doRequest(t, h, http.MethodGet, "/conversations/nope", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown conversation, got %d", resp.Code)
	}
	if resp := doRequest(t, h, http.MethodPost, "/conversations/c1/refresh", ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on refresh, got %d", resp.Code)
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t)
	if resp := doRequest(t, h, http.MethodPost, "/webhooks", `{"entry":`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestWebhookStoresValidSiblingsOfBrokenItems(t *testing.T) {
	tests := map[string]string{
		"text timestamp":       `{"id":"bad","from":"c1","timestamp":"soon","type":"text","text":{"body":"x"}}`,
		"fractional timestamp": `{"id":"bad","from":"c1","timestamp":1700000001.5,"type":"text","text":{"body":"x"}}`,
		"text as string":       `{"id":"bad","from":"c1","timestamp":"1700000001","type":"text","text":"x"}`,
	}
	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			body := `{"entry":[{"id":"e1","changes":[{"value":{"messages":[` +
				`{"id":"good","from":"c1","timestamp":"1700000000","type":"text","text":{"body":"ok"}},` + bad + `]}}]}]}`

			resp := doRequest(t, h, http.MethodPost, "/webhooks", body)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
			}
			var report service.Report
			decode(t, resp, &report)
			if report.Count(domain.OutcomeInserted) != 1 || report.Count(domain.OutcomeMalformed) != 1 {
				t.Fatalf("unexpected report %+v", report)
			}

			resp = doRequest(t, h, http.MethodGet, "/conversations/c1/messages", "")
			var messages []messageView
			decode(t, resp, &messages)
			if len(messages) != 1 || messages[0].ID != "good" {
				t.Fatalf("expected the valid sibling stored, got %+v", messages)
			}
		})
	}
}

func TestWebhookAfterStop(t *testing.T) {
	h, pipeline := newTestHandler(t)
	pipeline.Stop()
	if resp := doRequest(t, h, http.MethodPost, "/webhooks", inboundDelivery); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestVerifyHandshake(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodGet, "/webhooks/verify?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "42" {
		t.Fatalf("expected challenge echo, got %d %q", resp.Code, resp.Body.String())
	}

	resp = doRequest(t, h, http.MethodGet, "/webhooks/verify?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	doRequest(t, h, http.MethodPost, "/webhooks", inboundDelivery)

	if resp := doRequest(t, h, http.MethodPut, "/messages/unknown/status", `{"status":"read"}`); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := doRequest(t, h, http.MethodPut, "/messages/m1/status", `{"status":"seen"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}

	resp := doRequest(t, h, http.MethodPut, "/messages/m1/status", `{"status":"read"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	resp = doRequest(t, h, http.MethodPut, "/messages/m1/status", `{"status":"delivered"}`)
	var msg messageView
	decode(t, resp, &msg)
	if msg.Status != string(domain.StatusRead) {
		t.Fatalf("regression must keep read, got %q", msg.Status)
	}
}

func TestOutboundMessageEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodPost, "/messages", `{"conversationId":"c1","text":"hello"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var msg messageView
	decode(t, resp, &msg)
	if msg.Direction != string(domain.DirectionOutbound) || msg.ConversationID != "c1" {
		t.Fatalf("unexpected outbound message %+v", msg)
	}

	if resp := doRequest(t, h, http.MethodPost, "/messages", `{"conversationId":"c1"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without text, got %d", resp.Code)
	}
}

func TestWebsocketReceivesConversationEvents(t *testing.T) {
	h, _ := newTestHandler(t)
	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?conversation_id=c1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	if resp := doRequest(t, h, http.MethodPost, "/webhooks", inboundDelivery); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev struct {
		Type    string       `json:"type"`
		Message *messageView `json:"message"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != string(domain.EventMessageCreated) || ev.Message == nil || ev.Message.ID != "m1" {
		t.Fatalf("unexpected event %+v", ev)
	}

	if resp := doRequest(t, h, http.MethodGet, "/ws", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without conversation id, got %d", resp.Code)
	}
}
