package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by StyleRepository.Save when the
	// row version changed since the aggregate was loaded.
	ErrVersionConflict = errors.New("version conflict")
)

// Repositories bundles all gorm repositories.
type Repositories struct {
	Style    *StyleRepository
	Material *MaterialRepository
	User     *UserRepository
}

// NewRepositories creates the repository bundle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Style:    NewStyleRepository(db),
		Material: NewMaterialRepository(db),
		User:     NewUserRepository(db),
	}
}
