package repository

import (
	"context"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
	"gorm.io/gorm"
)

// ConversationRepository resolves conversation records for display enrichment.
type ConversationRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error)
}

type GormConversationRepo struct {
	db *gorm.DB
}

func NewGormConversationRepo(db *gorm.DB) *GormConversationRepo {
	return &GormConversationRepo{db: db}
}

// GetByIDs returns the conversations matching ids in one query. Missing ids
// are silently absent from the result; callers treat them as unresolved.
func (r *GormConversationRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []ConversationModel
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	conversations := make([]domain.Conversation, 0, len(models))
	for i := range models {
		conversations = append(conversations, *conversationModelToDomain(&models[i]))
	}

	return conversations, nil
}
