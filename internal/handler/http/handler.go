package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	_ "github.com/aniladanir/webhook-inbox/docs"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/metrics"
	"github.com/aniladanir/webhook-inbox/internal/service"
	"github.com/aniladanir/webhook-inbox/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const requestIDHeader = "X-Request-ID"

type Handler struct {
	inbox       service.Inbox
	verifyToken string
	logger      *slog.Logger
	router      *gin.Engine
	server      *http.Server
}

type outboundRequest struct {
	ConversationID string          `json:"conversationId" binding:"required"`
	Text           string          `json:"text" binding:"required"`
	SenderProfile  *domain.Profile `json:"senderProfile,omitempty"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// @title Webhook Inbox API
// @version 1.0
// @description Ingests messaging webhooks, serves conversations and pushes live updates
// @host localhost:6060
// @BasePath /
func NewHttpHandler(addr string, inbox service.Inbox, verifyToken string, logger *slog.Logger) *Handler {
	h := &Handler{
		inbox:       inbox,
		verifyToken: verifyToken,
		logger:      logger,
	}

	// create router
	router := gin.New()
	router.Use(gin.Recovery())

	// register routes
	router.POST("/webhooks", h.processWebhook)
	router.GET("/webhooks/verify", h.verifyWebhook)
	router.GET("/conversations", h.listConversations)
	router.GET("/conversations/:id", h.getConversation)
	router.POST("/conversations/:id/refresh", h.refreshConversation)
	router.GET("/conversations/:id/messages", h.listMessages)
	router.POST("/messages", h.sendMessage)
	router.PUT("/messages/:id/status", h.updateStatus)
	router.GET("/ws", h.subscribe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h.router = router

	// create http server
	h.server = &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// ServeHTTP exposes the router, mainly for tests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ProcessWebhook godoc
// @Summary Process a webhook delivery
// @Description Ingests every message and status of the payload. Store failures return 500 so the provider redelivers.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param payload body webhook.Payload true "webhook payload"
// @Success 200 {object} service.Report
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /webhooks [post]
func (h *Handler) processWebhook(c *gin.Context) {
	// items are decoded one by one later, so only a broken envelope is rejected here
	var payload webhook.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid webhook payload"})
		return
	}

	deliveryID := c.GetHeader(requestIDHeader)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	c.Header(requestIDHeader, deliveryID)

	report, err := h.inbox.ProcessPayload(c.Request.Context(), deliveryID, &payload)
	switch {
	case errors.Is(err, domain.ErrServiceStopped):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case err != nil:
		metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		h.logger.Error("webhook delivery failed", "deliveryId", deliveryID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to process webhook"})
		return
	}
	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, report)
}

// VerifyWebhook godoc
// @Summary Webhook subscription handshake
// @Description Echoes hub.challenge when hub.mode is subscribe and hub.verify_token matches
// @Tags Webhooks
// @Param hub.mode query string true "mode"
// @Param hub.verify_token query string true "verify token"
// @Param hub.challenge query string true "challenge"
// @Success 200 {string} string
// @Failure 403 {string} string
// @Router /webhooks/verify [get]
func (h *Handler) verifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}
	h.logger.Info("webhook verified")
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// ListConversations godoc
// @Summary List conversations
// @Description Returns one summary per conversation, most recent first
// @Tags Conversations
// @Produce json
// @Success 200 {array} domain.ConversationSummary
// @Router /conversations [get]
func (h *Handler) listConversations(c *gin.Context) {
	summaries, err := h.inbox.ListConversations(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list conversations", err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetConversation godoc
// @Summary Get a conversation summary
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.ConversationSummary
// @Failure 404 {object} errorResponse
// @Router /conversations/{id} [get]
func (h *Handler) getConversation(c *gin.Context) {
	summary, ok, err := h.inbox.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to get conversation", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RefreshConversation godoc
// @Summary Recompute a conversation summary from the store
// @Tags Conversations
// @Param id path string true "conversation id"
// @Success 204
// @Router /conversations/{id}/refresh [post]
func (h *Handler) refreshConversation(c *gin.Context) {
	if err := h.inbox.RefreshConversation(c.Request.Context(), c.Param("id")); err != nil {
		h.internalError(c, "failed to refresh conversation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages godoc
// @Summary List messages of a conversation
// @Description Returns messages oldest first, capped at the configured page size
// @Tags Messages
// @Produce json
// @Param id path string true "conversation id"
// @Param limit query int false "maximum number of messages"
// @Success 200 {array} domain.Message
// @Router /conversations/{id}/messages [get]
func (h *Handler) listMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = v
	}

	messages, err := h.inbox.ListMessages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.internalError(c, "failed to list messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Record an outbound text message
// @Tags Messages
// @Accept json
// @Produce json
// @Param message body outboundRequest true "outbound message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} errorResponse
// @Router /messages [post]
func (h *Handler) sendMessage(c *gin.Context) {
	var req outboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "conversationId and text are required"})
		return
	}

	msg, err := h.inbox.RecordOutboundMessage(c.Request.Context(), req.ConversationID, req.Text, req.SenderProfile)
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrServiceStopped):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.internalError(c, "failed to record message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateStatus godoc
// @Summary Update the status of a message
// @Description Moves the message addressed by id or correlation id forward; regressions leave it unchanged
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "message id or correlation id"
// @Param status body statusRequest true "new status"
// @Success 200 {object} domain.Message
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /messages/{id}/status [put]
func (h *Handler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	msg, err := h.inbox.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	switch {
	case errors.Is(err, domain.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "message not found"})
		return
	case errors.Is(err, domain.ErrServiceStopped):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.internalError(c, "failed to update status", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err.Error())
	c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
}
