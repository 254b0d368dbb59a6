package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/domain"
)

type memoryRepo struct {
	mu            sync.RWMutex
	seq           int64
	byID          map[string]*domain.Message
	byCorrelation map[string][]*domain.Message
	byConv        map[string][]*domain.Message
}

// NewMemoryRepository returns a process-local Repository with the same contract as the
// gorm implementation. Every operation runs under a single lock, which makes the
// existence check and insert atomic.
func NewMemoryRepository() Repository {
	return &memoryRepo{
		byID:          make(map[string]*domain.Message),
		byCorrelation: make(map[string][]*domain.Message),
		byConv:        make(map[string][]*domain.Message),
	}
}

func (r *memoryRepo) Insert(ctx context.Context, msg *domain.Message) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[msg.ID]; ok {
		return false, nil
	}
	r.seq++
	msg.Seq = r.seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = domain.StatusSent
	}
	stored := msg.Clone()
	r.byID[stored.ID] = &stored
	r.byCorrelation[stored.CorrelationID] = append(r.byCorrelation[stored.CorrelationID], &stored)
	r.byConv[stored.ConversationID] = append(r.byConv[stored.ConversationID], &stored)
	return true, nil
}

func (r *memoryRepo) AdvanceStatus(ctx context.Context, targetID string, status domain.Status) (domain.Message, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Message{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.byID[targetID]
	if !ok {
		// slices are append-only so the first element has the lowest seq
		if matches := r.byCorrelation[targetID]; len(matches) > 0 {
			msg, ok = matches[0], true
		}
	}
	if !ok {
		return domain.Message{}, false, domain.ErrTargetNotFound
	}
	if !status.After(msg.Status) {
		return msg.Clone(), false, nil
	}
	msg.Status = status
	return msg.Clone(), true, nil
}

func (r *memoryRepo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.byConv[conversationID]
	out := make([]domain.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) ListConversationIDs(ctx context.Context) ([]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byConv))
	for id := range r.byConv {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
