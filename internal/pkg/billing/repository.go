package billing

import (
	"fmt"
	"time"

	"github.com/andefred/eldsal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists webhook deliveries for idempotent processing.
type Repository interface {
	// RecordEvent stores event unless a delivery with the same provider and
	// event ID exists. It reports whether event was new and returns the stored row.
	RecordEvent(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	FinishEvent(id uint, outcome WebhookOutcome, processingError string) error
	// PruneEvents deletes processed deliveries received before cutoff.
	PruneEvents(cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a webhook event repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) RecordEvent(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, nil, fmt.Errorf("record webhook event %s: %w", event.ProviderEventID, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, event, nil
	}

	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		Take(&stored).Error; err != nil {
		return false, nil, err
	}
	return false, &stored, nil
}

func (r *gormRepository) FinishEvent(id uint, outcome WebhookOutcome, processingError string) error {
	now := time.Now().UTC()
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(map[string]any{
		"outcome":          string(outcome),
		"processing_error": processingError,
		"processed_at":     &now,
	}).Error
}

func (r *gormRepository) PruneEvents(cutoff time.Time) (int64, error) {
	res := r.db.Where("processed_at IS NOT NULL AND created_at < ?", cutoff.UTC()).
		Delete(&models.BillingWebhookEvent{})
	return res.RowsAffected, res.Error
}
