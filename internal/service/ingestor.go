package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/conversation"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/metrics"
	messageRepo "github.com/aniladanir/webhook-inbox/internal/repository/message"
)

// Publisher fans an event out to the subscribers of a conversation.
type Publisher interface {
	Publish(conversationID string, ev domain.Event) int
}

// Ingestor stores candidate messages exactly once per ID. Work is serialized per
// conversation so that an insert and its index update are never interleaved with
// another insert into the same conversation.
type Ingestor struct {
	repo         messageRepo.Repository
	index        conversation.Index
	publisher    Publisher
	locks        *keyLock
	storeTimeout time.Duration
	logger       *slog.Logger
}

func NewIngestor(repo messageRepo.Repository, index conversation.Index, publisher Publisher, locks *keyLock, storeTimeout time.Duration, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		repo:         repo,
		index:        index,
		publisher:    publisher,
		locks:        locks,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Ingest inserts msg unless its ID is already stored. The returned message is the stored
// snapshot for OutcomeInserted. Errors wrap domain.ErrStoreUnavailable.
func (i *Ingestor) Ingest(ctx context.Context, msg domain.Message) (domain.Message, domain.Outcome, error) {
	if msg.Status == "" {
		msg.Status = domain.StatusSent
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = msg.ID
	}
	if msg.Sender == msg.ConversationID {
		msg.Direction = domain.DirectionInbound
	} else {
		msg.Direction = domain.DirectionOutbound
	}

	unlock := i.locks.Lock(conversationKey(msg.ConversationID))
	defer unlock()

	storeCtx, cancel := context.WithTimeout(ctx, i.storeTimeout)
	defer cancel()

	start := time.Now()
	inserted, err := i.repo.Insert(storeCtx, &msg)
	metrics.StoreLatency.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Message{}, domain.OutcomeFailed, err
	}
	if !inserted {
		return domain.Message{}, domain.OutcomeDuplicate, nil
	}

	if err := i.index.MessageCreated(storeCtx, msg); err != nil {
		i.logger.Warn("failed to update conversation index",
			slog.String("conversationId", msg.ConversationID),
			slog.String("messageId", msg.ID),
			slog.String("error", err.Error()))
	}

	// publish only after the write is committed and the lock released
	unlock()
	i.publisher.Publish(msg.ConversationID, domain.NewMessageCreated(msg))

	return msg.Clone(), domain.OutcomeInserted, nil
}
