package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureLoyaltyIndexes adds the Postgres-only indexes gorm tags cannot express.
func EnsureLoyaltyIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_loyalty_outbox_claimable", `
			CREATE INDEX IF NOT EXISTS idx_loyalty_outbox_claimable
			ON loyalty_outbox (available_at)
			WHERE status = 'queued';`},
		{"idx_payments_completed_created", `
			CREATE INDEX IF NOT EXISTS idx_payments_completed_created
			ON payments (created_at DESC)
			WHERE status = 'completed';`},
		{"idx_qr_campaign_active", `
			CREATE INDEX IF NOT EXISTS idx_qr_campaign_active
			ON qr_campaign (program_id)
			WHERE is_active;`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureLoyaltyIndexes(s.db); err != nil {
		s.log.Error("Loyalty index migration failed", "error", err)
		return err
	}
	return nil
}
