package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/cache"
	"github.com/aniladanir/webhook-inbox/internal/domain"
)

// Source is the read side of the message store that summaries are derived from.
type Source interface {
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	ListConversationIDs(ctx context.Context) ([]string, error)
}

// Index maintains one summary per conversation. Callers must serialize MessageCreated and
// Refresh per conversation.
type Index interface {
	MessageCreated(ctx context.Context, msg domain.Message) error
	StatusChanged(ctx context.Context, msg domain.Message) error
	Refresh(ctx context.Context, conversationID string) error
	Get(ctx context.Context, conversationID string) (domain.ConversationSummary, bool, error)
	List(ctx context.Context) ([]domain.ConversationSummary, error)
}

// ScanIndex derives every summary from the store at read time.
type ScanIndex struct {
	source Source
}

func NewScanIndex(source Source) *ScanIndex {
	return &ScanIndex{source: source}
}

func (*ScanIndex) MessageCreated(context.Context, domain.Message) error { return nil }
func (*ScanIndex) StatusChanged(context.Context, domain.Message) error  { return nil }
func (*ScanIndex) Refresh(context.Context, string) error                { return nil }

func (x *ScanIndex) Get(ctx context.Context, conversationID string) (domain.ConversationSummary, bool, error) {
	messages, err := x.source.ListByConversation(ctx, conversationID, 0)
	if err != nil {
		return domain.ConversationSummary{}, false, err
	}
	summary, ok := Summarize(conversationID, messages)
	return summary, ok, nil
}

func (x *ScanIndex) List(ctx context.Context) ([]domain.ConversationSummary, error) {
	ids, err := x.source.ListConversationIDs(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ConversationSummary, 0, len(ids))
	for _, id := range ids {
		summary, ok, err := x.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			summaries = append(summaries, summary)
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

type cachedEntry struct {
	mu     sync.Mutex
	loaded bool
	agg    *aggregate
}

// CachedIndex keeps summaries in memory, updated incrementally on every write, and
// writes each changed summary through to a shared cache.
//
// It assumes a single writer process. List only reports conversations held in memory and
// Get reads the shared cache only for conversations this process has not loaded, so with
// several instances the two can disagree. Such deployments should use ScanIndex.
type CachedIndex struct {
	source   Source
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*cachedEntry
}

func NewCachedIndex(source Source, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) *CachedIndex {
	return &CachedIndex{
		source:   source,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
		entries:  make(map[string]*cachedEntry),
	}
}

func summaryKey(conversationID string) string {
	return fmt.Sprintf("conversation_summary:%s", conversationID)
}

func (x *CachedIndex) entry(conversationID string) *cachedEntry {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.entries[conversationID]
	if !ok {
		e = &cachedEntry{agg: newAggregate(conversationID)}
		x.entries[conversationID] = e
	}
	return e
}

// Warm loads every conversation from the store. Each store call is bounded by storeTimeout.
func (x *CachedIndex) Warm(ctx context.Context, storeTimeout time.Duration) error {
	listCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	ids, err := x.source.ListConversationIDs(listCtx)
	cancel()
	if err != nil {
		return err
	}
	for _, id := range ids {
		refreshCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		err := x.Refresh(refreshCtx, id)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// MessageCreated folds msg into its conversation. A conversation seen for the first time
// is loaded from the store instead, which already includes msg.
func (x *CachedIndex) MessageCreated(ctx context.Context, msg domain.Message) error {
	e := x.entry(msg.ConversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return x.reload(ctx, e, msg.ConversationID)
	}
	e.agg.add(msg)
	return x.persist(ctx, e.agg)
}

func (x *CachedIndex) StatusChanged(ctx context.Context, msg domain.Message) error {
	e := x.entry(msg.ConversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return x.reload(ctx, e, msg.ConversationID)
	}
	if !e.agg.update(msg) {
		return nil
	}
	return x.persist(ctx, e.agg)
}

// Refresh recomputes the summary of conversationID from the store.
func (x *CachedIndex) Refresh(ctx context.Context, conversationID string) error {
	e := x.entry(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return x.reload(ctx, e, conversationID)
}

func (x *CachedIndex) reload(ctx context.Context, e *cachedEntry, conversationID string) error {
	messages, err := x.source.ListByConversation(ctx, conversationID, 0)
	if err != nil {
		return err
	}
	agg := newAggregate(conversationID)
	for _, m := range messages {
		agg.add(m)
	}
	e.agg = agg
	e.loaded = true
	if len(messages) == 0 {
		return nil
	}
	return x.persist(ctx, agg)
}

func (x *CachedIndex) persist(ctx context.Context, agg *aggregate) error {
	if x.cache == nil {
		return nil
	}
	data, err := json.Marshal(agg.summary)
	if err != nil {
		return err
	}
	if err := x.cache.Set(ctx, summaryKey(agg.summary.ConversationID), string(data), x.cacheTTL); err != nil {
		return fmt.Errorf("write summary of %s to cache: %w", agg.summary.ConversationID, err)
	}
	return nil
}

// Get returns the in-memory summary and falls back to the cached snapshot for
// conversations this process has not loaded.
func (x *CachedIndex) Get(ctx context.Context, conversationID string) (domain.ConversationSummary, bool, error) {
	x.mu.Lock()
	e, ok := x.entries[conversationID]
	x.mu.Unlock()
	if ok {
		e.mu.Lock()
		loaded, summary := e.loaded, e.agg.snapshot()
		e.mu.Unlock()
		if loaded {
			return summary, summary.MessageCount > 0, nil
		}
	}
	if x.cache == nil {
		return domain.ConversationSummary{}, false, nil
	}

	raw, err := x.cache.Get(ctx, summaryKey(conversationID))
	if errors.Is(err, cache.ErrMiss) {
		return domain.ConversationSummary{}, false, nil
	}
	if err != nil {
		return domain.ConversationSummary{}, false, err
	}
	var summary cachedSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return domain.ConversationSummary{}, false, fmt.Errorf("decode cached summary of %s: %w", conversationID, err)
	}
	return summary.toDomain()
}

func (x *CachedIndex) List(ctx context.Context) ([]domain.ConversationSummary, error) {
	x.mu.Lock()
	entries := make([]*cachedEntry, 0, len(x.entries))
	for _, e := range x.entries {
		entries = append(entries, e)
	}
	x.mu.Unlock()

	summaries := make([]domain.ConversationSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.loaded && e.agg.summary.MessageCount > 0 {
			summaries = append(summaries, e.agg.snapshot())
		}
		e.mu.Unlock()
	}
	sortSummaries(summaries)
	return summaries, nil
}

// cachedSummary mirrors the JSON form of a summary with the payload left undecoded.
type cachedSummary struct {
	domain.ConversationSummary
	LastMessage struct {
		domain.Message
		Payload json.RawMessage `json:"payload"`
	} `json:"lastMessage"`
}

func (c cachedSummary) toDomain() (domain.ConversationSummary, bool, error) {
	summary := c.ConversationSummary
	summary.LastMessage = c.LastMessage.Message
	payload, err := domain.DecodePayload(summary.LastMessage.Kind, c.LastMessage.Payload)
	if err != nil {
		return domain.ConversationSummary{}, false, err
	}
	summary.LastMessage.Payload = payload
	return summary, true, nil
}
