package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aniladanir/webhook-inbox/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists messages. Implementations enforce uniqueness of Message.ID themselves;
// callers never rely on a prior lookup for duplicate suppression.
type Repository interface {
	// Insert stores msg unless a message with the same ID exists. On insert, msg.Seq and
	// msg.CreatedAt are populated. inserted is false for a duplicate.
	Insert(ctx context.Context, msg *domain.Message) (inserted bool, err error)
	// AdvanceStatus resolves targetID by id, then by correlation id, and moves the status
	// forward if status is later than the stored one. The returned message reflects the
	// stored state after the call.
	AdvanceStatus(ctx context.Context, targetID string, status domain.Status) (msg domain.Message, changed bool, err error)
	// ListByConversation returns messages oldest first. limit <= 0 returns all of them.
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	ListConversationIDs(ctx context.Context) ([]string, error)
}

type repo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Insert relies on the unique index on id; a conflicting insert affects no rows.
func (r *repo) Insert(ctx context.Context, msg *domain.Message) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(msg)
	if res.Error != nil {
		return false, fmt.Errorf("%w: insert message %s: %v", domain.ErrStoreUnavailable, msg.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AdvanceStatus locks the resolved row for the duration of the compare-and-update.
func (r *repo) AdvanceStatus(ctx context.Context, targetID string, status domain.Status) (domain.Message, bool, error) {
	var (
		msg     domain.Message
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", targetID).Take(&msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("correlation_id = ?", targetID).Order("seq").Take(&msg).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTargetNotFound
		}
		if err != nil {
			return err
		}

		if !status.After(msg.Status) {
			return nil
		}
		if err := tx.Model(&domain.Message{}).Where("seq = ?", msg.Seq).
			UpdateColumn("status", status).Error; err != nil {
			return err
		}
		msg.Status = status
		changed = true
		return nil
	})
	if errors.Is(err, domain.ErrTargetNotFound) {
		return domain.Message{}, false, err
	}
	if err != nil {
		return domain.Message{}, false, fmt.Errorf("%w: advance status of %s: %v", domain.ErrStoreUnavailable, targetID, err)
	}
	return msg, changed, nil
}

func (r *repo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("occurred_at ASC").Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("%w: list messages of %s: %v", domain.ErrStoreUnavailable, conversationID, err)
	}
	return messages, nil
}

func (r *repo) ListConversationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Distinct("conversation_id").Pluck("conversation_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", domain.ErrStoreUnavailable, err)
	}
	return ids, nil
}
