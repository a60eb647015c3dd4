package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuongmay/garment-plm/internal/config"
	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"go.uber.org/zap"
)

// Sentinel errors surfaced by the handler layer.
var (
	// ErrInvalid marks a request the caller can fix (bad fields,
	// illegal workflow transition, unknown filter value).
	ErrInvalid = errors.New("invalid request")
	// ErrConflict marks a uniqueness violation (duplicate style code,
	// duplicate username).
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials marks a failed login or token check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// MaterialCatalog is the material lookup surface the costing side
// depends on. MaterialService implements it; tests can substitute it.
type MaterialCatalog interface {
	FindByID(ctx context.Context, id string) (*entity.Material, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.Material, error)
	ListAll(ctx context.Context) ([]entity.Material, error)
}

// Services bundles all application services.
type Services struct {
	Auth     *AuthService
	User     *UserService
	Material *MaterialService
	Style    *StyleService
	Export   *ExportService
	Email    *EmailService
	Asset    *AssetService
}

// NewServices creates the service bundle. Asset storage is optional:
// when minio is not configured the Asset service stays nil and image
// upload is rejected at the handler.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	emailSvc := NewEmailService(cfg.SMTP, logger)

	var assetSvc *AssetService
	if cfg.MinIO.Endpoint != "" {
		svc, err := NewAssetService(cfg.MinIO)
		if err != nil {
			logger.Warn("minio unavailable, image upload disabled", zap.Error(err))
		} else {
			assetSvc = svc
		}
	}

	return &Services{
		Auth:     NewAuthService(repos.User, rdb, emailSvc, cfg),
		User:     NewUserService(repos.User, emailSvc),
		Material: NewMaterialService(repos.Material),
		Style:    NewStyleService(repos.Style, repos.Material),
		Export:   NewExportService(repos.Style, repos.Material),
		Email:    emailSvc,
		Asset:    assetSvc,
	}
}

func newID() string {
	return uuid.New().String()[:32]
}
