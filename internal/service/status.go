package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/conversation"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/metrics"
	messageRepo "github.com/aniladanir/webhook-inbox/internal/repository/message"
)

// StatusTracker applies forward-only status transitions.
type StatusTracker struct {
	repo         messageRepo.Repository
	index        conversation.Index
	publisher    Publisher
	locks        *keyLock
	storeTimeout time.Duration
	logger       *slog.Logger
}

func NewStatusTracker(repo messageRepo.Repository, index conversation.Index, publisher Publisher, locks *keyLock, storeTimeout time.Duration, logger *slog.Logger) *StatusTracker {
	return &StatusTracker{
		repo:         repo,
		index:        index,
		publisher:    publisher,
		locks:        locks,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Apply moves the message addressed by targetID (its id or correlation id) to status.
// A status not later than the stored one is ignored. The returned message is the stored
// state; it is empty for OutcomeNotFound.
func (t *StatusTracker) Apply(ctx context.Context, targetID string, status domain.Status) (domain.Message, domain.Outcome, error) {
	unlock := t.locks.Lock(messageKey(targetID))
	defer unlock()

	storeCtx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	start := time.Now()
	msg, changed, err := t.repo.AdvanceStatus(storeCtx, targetID, status)
	metrics.StoreLatency.WithLabelValues("advance_status").Observe(time.Since(start).Seconds())
	if errors.Is(err, domain.ErrTargetNotFound) {
		return domain.Message{}, domain.OutcomeNotFound, nil
	}
	if err != nil {
		return domain.Message{}, domain.OutcomeFailed, err
	}
	if !changed {
		return msg, domain.OutcomeIgnoredRegression, nil
	}

	unlockConv := t.locks.Lock(conversationKey(msg.ConversationID))
	if err := t.index.StatusChanged(storeCtx, msg); err != nil {
		t.logger.Warn("failed to update conversation index",
			slog.String("conversationId", msg.ConversationID),
			slog.String("messageId", msg.ID),
			slog.String("error", err.Error()))
	}
	unlockConv()

	unlock()
	t.publisher.Publish(msg.ConversationID, domain.NewStatusChanged(msg.ConversationID, targetID, msg.ID, msg.Status))

	return msg, domain.OutcomeUpdated, nil
}
