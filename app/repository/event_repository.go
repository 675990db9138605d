package repository

import (
	"time"

	"github.com/ManuelReschke/TextFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimCandidateBatch bounds how many eligible rows one ClaimNext call will
// race for before reporting the queue as empty.
const claimCandidateBatch = 5

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an event repository backed by GORM.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Insert persists an event idempotently keyed by provider + provider event
// id. Returns created=false and the stored row for redelivered webhooks.
func (r *eventRepository) Insert(event *models.InboundEvent) (bool, *models.InboundEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.InboundEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// ClaimNext atomically claims the oldest eligible row. The claim is a
// compare-and-swap: a guarded UPDATE that only wins when the row is still
// unclaimed, so N concurrent workers never own the same row.
func (r *eventRepository) ClaimNext(now time.Time) (*models.InboundEvent, error) {
	var candidates []models.InboundEvent
	err := r.db.
		Where("status IN ?", []string{models.EventStatusPending, models.EventStatusError}).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("id asc").
		Limit(claimCandidateBatch).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		tx := r.db.Model(&models.InboundEvent{}).
			Where("id = ? AND status = ?", candidates[i].ID, candidates[i].Status).
			Updates(map[string]interface{}{
				"status":    models.EventStatusProcessing,
				"locked_at": now,
				"attempts":  gorm.Expr("attempts + 1"),
			})
		if tx.Error != nil {
			return nil, tx.Error
		}
		if tx.RowsAffected == 0 {
			// A concurrent worker won this row; try the next candidate.
			continue
		}

		var claimed models.InboundEvent
		if err := r.db.First(&claimed, candidates[i].ID).Error; err != nil {
			return nil, err
		}
		return &claimed, nil
	}

	return nil, models.ErrNoEligibleEvent
}

// MarkDone transitions processing -> done.
func (r *eventRepository) MarkDone(id uint, now time.Time) error {
	return r.db.Model(&models.InboundEvent{}).
		Where("id = ? AND status = ?", id, models.EventStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.EventStatusDone,
			"processed_at": now,
			"locked_at":    nil,
			"last_error":   "",
		}).Error
}

// MarkError reschedules a failed row with a growing delay, or dead-letters
// it once the attempt budget is spent.
func (r *eventRepository) MarkError(id uint, message string, now time.Time) error {
	var event models.InboundEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"last_error": models.TruncateError(message),
		"locked_at":  nil,
	}
	if event.Attempts >= models.MaxEventAttempts {
		updates["status"] = models.EventStatusDead
		updates["processed_at"] = now
	} else {
		updates["status"] = models.EventStatusError
		updates["next_attempt_at"] = now.Add(models.RetryDelay(event.Attempts))
	}

	// Guarded on processing like MarkDone, so a stray call can never
	// reschedule an already terminal row.
	return r.db.Model(&models.InboundEvent{}).
		Where("id = ? AND status = ?", id, models.EventStatusProcessing).
		Updates(updates).Error
}

func (r *eventRepository) GetByID(id uint) (*models.InboundEvent, error) {
	var event models.InboundEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
