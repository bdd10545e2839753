package repositories

import (
	"context"
	"time"

	"solilend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// uploadRepository implements UploadRepository interface
type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

// Create records a stored file
func (r *uploadRepository) Create(ctx context.Context, file *models.UploadedFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// ListExpired returns files whose TTL has elapsed
func (r *uploadRepository) ListExpired(ctx context.Context, asOf time.Time) ([]*models.UploadedFile, error) {
	var files []*models.UploadedFile
	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", asOf).
		Find(&files).Error
	return files, err
}

// Delete removes a file record
func (r *uploadRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.UploadedFile{}, id).Error
}
