package migrations

import (
	"github.com/NEXESMISSION/fulldevland/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createConversationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_conversations",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ConversationModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_conversations_agent_id ON conversations (agent_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ConversationModel{})
		},
	}
}
