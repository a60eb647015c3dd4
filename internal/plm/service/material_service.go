package service

import (
	"context"
	"fmt"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
)

// MaterialService owns the material catalog. It is the MaterialCatalog
// implementation the costing side reads unit costs from.
type MaterialService struct {
	repo *repository.MaterialRepository
}

func NewMaterialService(repo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{repo: repo}
}

type CreateMaterialInput struct {
	Name        string  `json:"name" binding:"required"`
	Unit        string  `json:"unit" binding:"required"`
	Stock       float64 `json:"stock" binding:"gte=0"`
	CostPerUnit float64 `json:"cost_per_unit" binding:"gte=0"`
}

type UpdateMaterialInput struct {
	Name        *string  `json:"name"`
	Unit        *string  `json:"unit"`
	Stock       *float64 `json:"stock"`
	CostPerUnit *float64 `json:"cost_per_unit"`
}

func (s *MaterialService) List(ctx context.Context) ([]entity.Material, error) {
	return s.repo.ListAll(ctx)
}

func (s *MaterialService) Get(ctx context.Context, id string) (*entity.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("material not found: %w", err)
	}
	return material, nil
}

func (s *MaterialService) FindByID(ctx context.Context, id string) (*entity.Material, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *MaterialService) FindByIDs(ctx context.Context, ids []string) ([]entity.Material, error) {
	return s.repo.FindByIDs(ctx, ids)
}

func (s *MaterialService) ListAll(ctx context.Context) ([]entity.Material, error) {
	return s.repo.ListAll(ctx)
}

func (s *MaterialService) Create(ctx context.Context, in *CreateMaterialInput) (*entity.Material, error) {
	material := &entity.Material{
		ID:          newID(),
		Name:        in.Name,
		Unit:        in.Unit,
		Stock:       in.Stock,
		CostPerUnit: in.CostPerUnit,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return material, nil
}

// Update changes catalog fields. Styles referencing this material pick
// up the new unit cost on their next recompute.
func (s *MaterialService) Update(ctx context.Context, id string, in *UpdateMaterialInput) (*entity.Material, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		material.Name = *in.Name
	}
	if in.Unit != nil {
		material.Unit = *in.Unit
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, fmt.Errorf("stock must not be negative: %w", ErrInvalid)
		}
		material.Stock = *in.Stock
	}
	if in.CostPerUnit != nil {
		if *in.CostPerUnit < 0 {
			return nil, fmt.Errorf("cost per unit must not be negative: %w", ErrInvalid)
		}
		material.CostPerUnit = *in.CostPerUnit
	}

	if err := s.repo.Update(ctx, material); err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}
	return material, nil
}

// Delete removes a material. Styles still referencing it keep the raw
// id in their BOM; the line simply stops contributing cost.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return fmt.Errorf("material not found: %w", err)
		}
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}
