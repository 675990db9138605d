package repository

import (
	"github.com/ManuelReschke/TextFox/app/models"
	"gorm.io/gorm"
)

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a summary repository backed by GORM.
func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) Create(summary *models.Summary) error {
	return r.db.Create(summary).Error
}

func (r *summaryRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Summary{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
