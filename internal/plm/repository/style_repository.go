package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"gorm.io/gorm"
)

type StyleRepository struct {
	db *gorm.DB
}

func NewStyleRepository(db *gorm.DB) *StyleRepository {
	return &StyleRepository{db: db}
}

func (r *StyleRepository) Create(ctx context.Context, style *entity.Style) error {
	return r.db.WithContext(ctx).Create(style).Error
}

func (r *StyleRepository) FindByID(ctx context.Context, id string) (*entity.Style, error) {
	var style entity.Style
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&style).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &style, nil
}

func (r *StyleRepository) FindByCode(ctx context.Context, code string) (*entity.Style, error) {
	var style entity.Style
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&style).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &style, nil
}

// List returns styles ordered newest first, optionally filtered by status.
func (r *StyleRepository) List(ctx context.Context, status string) ([]entity.Style, error) {
	var styles []entity.Style
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&styles).Error; err != nil {
		return nil, err
	}
	return styles, nil
}

// ListFiltered returns styles matching any of the given statuses and/or ids.
// Empty filter slices are ignored.
func (r *StyleRepository) ListFiltered(ctx context.Context, statuses, ids []string) ([]entity.Style, error) {
	var styles []entity.Style
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	if err := query.Find(&styles).Error; err != nil {
		return nil, err
	}
	return styles, nil
}

// Save writes the whole aggregate back with an optimistic version check.
// The write only lands when the stored version still matches the loaded
// one; a miss means a concurrent writer won and ErrVersionConflict is
// returned with the in-memory version left untouched.
func (r *StyleRepository) Save(ctx context.Context, style *entity.Style) error {
	loadedVersion := style.Version
	style.Version = loadedVersion + 1

	res := r.db.WithContext(ctx).Model(&entity.Style{}).
		Where("id = ? AND version = ?", style.ID, loadedVersion).
		Select("*").Omit("id", "created_at").
		Updates(style)
	if res.Error != nil {
		style.Version = loadedVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		style.Version = loadedVersion
		return fmt.Errorf("style %s: %w", style.ID, ErrVersionConflict)
	}
	return nil
}

func (r *StyleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Style{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
