package repository

import (
	"errors"
	"time"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/internal/pkg/entitlements"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetOrCreateByPhone resolves the sender, creating a free-plan user seeded
// with the configured quota on first contact. Concurrent first messages
// race through the unique phone index; the loser reselects.
func (r *userRepository) GetOrCreateByPhone(phone string, freeQuota int) (*models.User, bool, error) {
	user, err := r.GetByPhone(phone)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	fresh := models.User{
		Phone:         models.NormalizePhone(phone),
		PhoneHash:     models.HashPhone(phone),
		Plan:          string(entitlements.PlanFree),
		Status:        models.USER_STATUS_ACTIVE,
		FreeRemaining: freeQuota,
		Lang:          models.LangAuto,
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&fresh)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	stored, err := r.GetByPhone(phone)
	if err != nil {
		return nil, false, err
	}
	return stored, tx.RowsAffected > 0, nil
}

func (r *userRepository) GetByPhone(phone string) (*models.User, error) {
	var user models.User
	err := r.db.Where("phone IN ?", models.PhoneVariants(phone)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetStatus(userID uint, status string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("status", status).Error
}

func (r *userRepository) SetLang(userID uint, lang string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("lang", lang).Error
}

func (r *userRepository) SetPlanByPhone(phone string, plan string) error {
	return r.db.Model(&models.User{}).
		Where("phone IN ?", models.PhoneVariants(phone)).
		Update("plan", plan).Error
}

func (r *userRepository) SetPlanByID(userID uint, plan string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("plan", plan).Error
}

// ResetPreferences erases stored preferences and usage counters without
// touching the account row itself or its consent timestamps.
func (r *userRepository) ResetPreferences(userID uint, freeQuota int) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"lang":           models.LangAuto,
			"free_remaining": freeQuota,
		}).Error
}

// ClaimPrivacyNotice is the set-once conditional claim for the first-time
// privacy notice: the UPDATE only wins while the column is still NULL, so
// exactly one of any number of racing workers sends the notice.
func (r *userRepository) ClaimPrivacyNotice(phone string, now time.Time) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("phone IN ? AND privacy_notice_sent_at IS NULL", models.PhoneVariants(phone)).
		Update("privacy_notice_sent_at", now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ClaimTosAccepted records terms acceptance with the same conditional-claim
// pattern. Losing the race is not an error; acceptance degrades to implied.
func (r *userRepository) ClaimTosAccepted(phone, version string, now time.Time) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("phone IN ? AND tos_accepted_at IS NULL", models.PhoneVariants(phone)).
		Updates(map[string]interface{}{
			"tos_accepted_at": now,
			"tos_version":     version,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// DecrementFreeRemaining burns one quota unit. The guard keeps the counter
// at zero or above and makes the decrement a no-op for paid plans.
func (r *userRepository) DecrementFreeRemaining(userID uint) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND plan = ? AND free_remaining > 0", userID, string(entitlements.PlanFree)).
		Update("free_remaining", gorm.Expr("free_remaining - 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
