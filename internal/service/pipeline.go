package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/conversation"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/metrics"
	"github.com/aniladanir/webhook-inbox/internal/notify"
	messageRepo "github.com/aniladanir/webhook-inbox/internal/repository/message"
	"github.com/aniladanir/webhook-inbox/internal/webhook"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize     = 100
	defaultWorkers      = 8
	defaultStoreTimeout = 5 * time.Second
)

// Inbox is the outward facing surface of the ingestion pipeline.
type Inbox interface {
	ProcessPayload(ctx context.Context, deliveryID string, payload *webhook.Payload) (Report, error)
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
	GetConversation(ctx context.Context, conversationID string) (domain.ConversationSummary, bool, error)
	RefreshConversation(ctx context.Context, conversationID string) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	RecordOutboundMessage(ctx context.Context, conversationID, text string, profile *domain.Profile) (domain.Message, error)
	UpdateStatus(ctx context.Context, targetID string, status domain.Status) (domain.Message, error)
	Subscribe(conversationID string) (*notify.Subscription, error)
}

type Options struct {
	StoreTimeout     time.Duration
	Workers          int
	PageSize         int
	SubscriberBuffer int
	// Operator is the identity that outbound messages are sent as.
	Operator domain.Profile
}

// warmer is implemented by indexes that keep state across requests.
type warmer interface {
	Warm(ctx context.Context, storeTimeout time.Duration) error
}

// ItemResult is the classified outcome of one message or status of a payload.
type ItemResult struct {
	Item           string         `json:"item"`
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId,omitempty"`
	Outcome        domain.Outcome `json:"outcome"`
	Err            error          `json:"-"`
}

type Report struct {
	DeliveryID string       `json:"deliveryId"`
	Results    []ItemResult `json:"results"`
}

// Count returns how many items of the report ended with outcome.
func (r Report) Count(outcome domain.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

type Pipeline struct {
	repo     messageRepo.Repository
	index    conversation.Index
	locks    *keyLock
	ingestor *Ingestor
	tracker  *StatusTracker
	logger   *slog.Logger
	opts     Options

	mtx       sync.RWMutex
	isRunning bool
	hub       *notify.Hub
	inflight  sync.WaitGroup
}

func NewPipeline(repo messageRepo.Repository, index conversation.Index, logger *slog.Logger, opts Options) *Pipeline {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	p := &Pipeline{
		repo:   repo,
		index:  index,
		locks:  newKeyLock(),
		logger: logger,
		opts:   opts,
	}
	p.ingestor = NewIngestor(repo, index, p, p.locks, opts.StoreTimeout, logger.With(slog.String("component", "ingestor")))
	p.tracker = NewStatusTracker(repo, index, p, p.locks, opts.StoreTimeout, logger.With(slog.String("component", "statusTracker")))
	return p
}

// Start warms the conversation index and opens the notification hub.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.isRunning {
		return nil
	}

	if w, ok := p.index.(warmer); ok {
		if err := w.Warm(ctx, p.opts.StoreTimeout); err != nil {
			return fmt.Errorf("failed to warm conversation index: %w", err)
		}
	}

	p.hub = notify.NewHub(p.logger.With(slog.String("component", "hub")), p.opts.SubscriberBuffer)
	p.isRunning = true
	return nil
}

// Stop rejects new work, waits for in-flight work to finish and closes every subscription.
func (p *Pipeline) Stop() {
	p.mtx.Lock()
	if !p.isRunning {
		p.mtx.Unlock()
		return
	}
	p.isRunning = false
	hub := p.hub
	p.mtx.Unlock()

	p.inflight.Wait()
	hub.Close()
}

func (p *Pipeline) enter() error {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if !p.isRunning {
		return domain.ErrServiceStopped
	}
	p.inflight.Add(1)
	return nil
}

// Publish forwards ev to the hub of the running pipeline.
func (p *Pipeline) Publish(conversationID string, ev domain.Event) int {
	p.mtx.RLock()
	hub := p.hub
	p.mtx.RUnlock()
	if hub == nil {
		return 0
	}
	return hub.Publish(conversationID, ev)
}

func (p *Pipeline) Subscribe(conversationID string) (*notify.Subscription, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if !p.isRunning {
		return nil, domain.ErrServiceStopped
	}
	return p.hub.Subscribe(conversationID)
}

// ProcessPayload processes every message and status of payload. Items are independent:
// a failing item never stops its siblings. Messages go first so that a status for a
// message of the same payload finds it. The returned error joins store failures only.
// Cancellation of ctx is ignored; each store call is bounded by the store timeout instead.
func (p *Pipeline) ProcessPayload(ctx context.Context, deliveryID string, payload *webhook.Payload) (Report, error) {
	if err := p.enter(); err != nil {
		return Report{}, err
	}
	defer p.inflight.Done()
	ctx = context.WithoutCancel(ctx)

	messages, statuses := payload.Items()
	report := Report{
		DeliveryID: deliveryID,
		Results:    make([]ItemResult, len(messages)+len(statuses)),
	}

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for i, item := range messages {
		g.Go(func() error {
			report.Results[i] = p.processMessage(ctx, deliveryID, item)
			return nil
		})
	}
	_ = g.Wait()

	offset := len(messages)
	for i, item := range statuses {
		g.Go(func() error {
			report.Results[offset+i] = p.processStatus(ctx, deliveryID, item)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range report.Results {
		if res.Outcome == domain.OutcomeFailed {
			errs = append(errs, res.Err)
		}
	}
	return report, errors.Join(errs...)
}

func (p *Pipeline) processMessage(ctx context.Context, deliveryID string, item webhook.MessageItem) ItemResult {
	logger := p.logger.With(
		slog.String("deliveryId", deliveryID),
		slog.String("entryId", item.EntryID),
		slog.String("messageId", item.ID()))
	result := ItemResult{Item: "message", ID: item.ID()}

	var msg domain.Message
	raw, err := item.Decode()
	if err == nil {
		msg, err = webhook.NormalizeMessage(raw, item.Value)
	}
	if err != nil {
		logger.Warn("skipping malformed message", slog.String("error", err.Error()))
		result.Outcome, result.Err = domain.OutcomeMalformed, err
		metrics.IngestOutcomes.WithLabelValues(result.Item, string(result.Outcome)).Inc()
		return result
	}
	result.ConversationID = msg.ConversationID
	logger = logger.With(slog.String("conversationId", msg.ConversationID))

	if !msg.Kind.Supported() {
		logger.Warn("kind not supported, storing without payload", slog.String("kind", string(msg.Kind)))
		metrics.UnsupportedKinds.WithLabelValues(string(msg.Kind)).Inc()
	}

	_, result.Outcome, result.Err = p.ingestor.Ingest(ctx, msg)
	metrics.IngestOutcomes.WithLabelValues(result.Item, string(result.Outcome)).Inc()
	if result.Err != nil {
		logger.Error("failed to ingest message", slog.String("error", result.Err.Error()))
		return result
	}
	logger.Info("message processed", slog.String("outcome", string(result.Outcome)))
	return result
}

func (p *Pipeline) processStatus(ctx context.Context, deliveryID string, item webhook.StatusItem) ItemResult {
	logger := p.logger.With(
		slog.String("deliveryId", deliveryID),
		slog.String("entryId", item.EntryID),
		slog.String("targetId", item.ID()))
	result := ItemResult{Item: "status", ID: item.ID()}

	var update webhook.StatusUpdate
	raw, err := item.Decode()
	if err == nil {
		update, err = webhook.NormalizeStatus(raw)
	}
	if err != nil {
		logger.Warn("skipping malformed status", slog.String("error", err.Error()))
		result.Outcome, result.Err = domain.OutcomeMalformed, err
		metrics.IngestOutcomes.WithLabelValues(result.Item, string(result.Outcome)).Inc()
		return result
	}

	var msg domain.Message
	msg, result.Outcome, result.Err = p.tracker.Apply(ctx, update.TargetID, update.Status)
	result.ConversationID = msg.ConversationID
	metrics.IngestOutcomes.WithLabelValues(result.Item, string(result.Outcome)).Inc()
	if result.Err != nil {
		logger.Error("failed to apply status", slog.String("error", result.Err.Error()))
		return result
	}
	logger.Info("status processed",
		slog.String("status", string(update.Status)),
		slog.String("conversationId", msg.ConversationID),
		slog.String("outcome", string(result.Outcome)))
	return result
}

func (p *Pipeline) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.index.List(ctx)
}

func (p *Pipeline) GetConversation(ctx context.Context, conversationID string) (domain.ConversationSummary, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.index.Get(ctx, conversationID)
}

// RefreshConversation recomputes the summary of one conversation from the store.
func (p *Pipeline) RefreshConversation(ctx context.Context, conversationID string) error {
	unlock := p.locks.Lock(conversationKey(conversationID))
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.index.Refresh(ctx, conversationID)
}

// ListMessages returns the oldest messages of a conversation, at most one page.
func (p *Pipeline) ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > p.opts.PageSize {
		limit = p.opts.PageSize
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.repo.ListByConversation(ctx, conversationID, limit)
}

// RecordOutboundMessage builds a text message sent by the operator and ingests it through
// the same path as webhook messages.
func (p *Pipeline) RecordOutboundMessage(ctx context.Context, conversationID, text string, profile *domain.Profile) (domain.Message, error) {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(text) == "" {
		return domain.Message{}, fmt.Errorf("%w: conversation id and text are required", domain.ErrMalformedPayload)
	}
	if err := p.enter(); err != nil {
		return domain.Message{}, err
	}
	defer p.inflight.Done()
	ctx = context.WithoutCancel(ctx)

	if profile == nil {
		operator := p.opts.Operator
		profile = &operator
	}
	msg := domain.Message{
		ID:             uuid.NewString(),
		CorrelationID:  uuid.NewString(),
		ConversationID: conversationID,
		Sender:         p.opts.Operator.Identity,
		Recipient:      conversationID,
		OccurredAt:     time.Now().UTC().Truncate(time.Millisecond),
		Kind:           domain.KindText,
		Payload:        domain.Text{Body: text},
		Status:         domain.StatusSent,
		SenderProfile:  profile,
	}

	stored, outcome, err := p.ingestor.Ingest(ctx, msg)
	metrics.IngestOutcomes.WithLabelValues("message", string(outcome)).Inc()
	if err != nil {
		return domain.Message{}, err
	}
	p.logger.Info("outbound message recorded",
		slog.String("messageId", msg.ID),
		slog.String("conversationId", conversationID),
		slog.String("outcome", string(outcome)))
	if outcome != domain.OutcomeInserted {
		return domain.Message{}, fmt.Errorf("outbound message %s was not stored: %s", msg.ID, outcome)
	}
	return stored, nil
}

// UpdateStatus applies a status change requested by an operator. A regression returns the
// unchanged message. domain.ErrTargetNotFound is returned for unknown targets.
func (p *Pipeline) UpdateStatus(ctx context.Context, targetID string, status domain.Status) (domain.Message, error) {
	if err := p.enter(); err != nil {
		return domain.Message{}, err
	}
	defer p.inflight.Done()
	ctx = context.WithoutCancel(ctx)

	msg, outcome, err := p.tracker.Apply(ctx, targetID, status)
	metrics.IngestOutcomes.WithLabelValues("status", string(outcome)).Inc()
	if err != nil {
		return domain.Message{}, err
	}
	p.logger.Info("status update requested",
		slog.String("targetId", targetID),
		slog.String("status", string(status)),
		slog.String("outcome", string(outcome)))
	if outcome == domain.OutcomeNotFound {
		return domain.Message{}, domain.ErrTargetNotFound
	}
	return msg, nil
}
