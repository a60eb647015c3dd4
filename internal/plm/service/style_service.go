package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
)

var styleCodePattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// StyleService owns the style aggregate: CRUD, BOM/routing sub-records,
// synchronous cost recomputation and the pricing workflow.
type StyleService struct {
	styles    *repository.StyleRepository
	materials MaterialCatalog
}

func NewStyleService(styles *repository.StyleRepository, materials MaterialCatalog) *StyleService {
	return &StyleService{styles: styles, materials: materials}
}

// ---- Input DTOs ----

type CreateStyleInput struct {
	Code         string   `json:"code" binding:"required"`
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	Quantity     *int     `json:"quantity"`
	InitialPrice *float64 `json:"initial_price"`
}

type UpdateStyleInput struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Quantity     *int     `json:"quantity"`
	InitialPrice *float64 `json:"initial_price"`
}

type AddBOMItemInput struct {
	MaterialID string  `json:"material_id" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	WasteRate  float64 `json:"waste_rate" binding:"gte=0"`
}

type UpdateBOMItemInput struct {
	Quantity  *float64 `json:"quantity"`
	WasteRate *float64 `json:"waste_rate"`
}

type AddRoutingStepInput struct {
	Operation string  `json:"operation" binding:"required"`
	Minutes   float64 `json:"minutes" binding:"required,gt=0"`
	LaborRate float64 `json:"labor_rate" binding:"required,gt=0"`
}

type UpdateRoutingStepInput struct {
	Operation *string  `json:"operation"`
	Minutes   *float64 `json:"minutes"`
	LaborRate *float64 `json:"labor_rate"`
}

type ReorderRoutingInput struct {
	StepIDs []string `json:"step_ids" binding:"required"`
}

// ---- Aggregate CRUD ----

// List returns styles newest first, optionally filtered by status.
func (s *StyleService) List(ctx context.Context, status string) ([]entity.Style, error) {
	if status != "" && !entity.IsValidStyleStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalid)
	}
	return s.styles.List(ctx, status)
}

func (s *StyleService) Get(ctx context.Context, id string) (*entity.Style, error) {
	style, err := s.styles.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("style not found: %w", err)
	}
	return style, nil
}

// Create registers a new style in DRAFT with empty collections and zero
// derived costs.
func (s *StyleService) Create(ctx context.Context, in *CreateStyleInput) (*entity.Style, error) {
	if !styleCodePattern.MatchString(in.Code) {
		return nil, fmt.Errorf("style code must contain only A-Z, 0-9 and '-': %w", ErrInvalid)
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative: %w", ErrInvalid)
	}
	if in.InitialPrice != nil && *in.InitialPrice < 0 {
		return nil, fmt.Errorf("initial price must not be negative: %w", ErrInvalid)
	}

	existing, err := s.styles.FindByCode(ctx, in.Code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check style code: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("style with code %s already exists: %w", in.Code, ErrConflict)
	}

	style := &entity.Style{
		ID:          newID(),
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Status:      entity.StyleStatusDraft,
		BOM:         entity.BOMItems{},
		Routing:     entity.RoutingSteps{},
	}
	if in.Quantity != nil {
		style.Quantity = *in.Quantity
	}
	if in.InitialPrice != nil {
		style.InitialPrice = *in.InitialPrice
	}

	if err := s.styles.Create(ctx, style); err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	return style, nil
}

// Update changes base fields and recomputes costs before saving.
func (s *StyleService) Update(ctx context.Context, id string, in *UpdateStyleInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		style.Name = *in.Name
	}
	if in.Description != nil {
		style.Description = *in.Description
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return nil, fmt.Errorf("quantity must not be negative: %w", ErrInvalid)
		}
		style.Quantity = *in.Quantity
	}
	if in.InitialPrice != nil {
		if *in.InitialPrice < 0 {
			return nil, fmt.Errorf("initial price must not be negative: %w", ErrInvalid)
		}
		style.InitialPrice = *in.InitialPrice
	}

	if err := s.recalculate(ctx, style); err != nil {
		return nil, err
	}
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// SetImage stores the uploaded image URL. No recompute: the image does
// not participate in costing.
func (s *StyleService) SetImage(ctx context.Context, id, url string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	style.Image = url
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// Remove deletes a style. Only DRAFT styles may be deleted.
func (s *StyleService) Remove(ctx context.Context, id string) error {
	style, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if style.Status != entity.StyleStatusDraft {
		return fmt.Errorf("cannot delete style with status %s, only DRAFT styles can be deleted: %w",
			style.Status, ErrInvalid)
	}
	return s.styles.Delete(ctx, id)
}

// ---- BOM sub-records ----

// AddBOMItem appends a material line. The material must exist at add
// time; later catalog deletions only zero out its cost contribution.
func (s *StyleService) AddBOMItem(ctx context.Context, id string, in *AddBOMItemInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.materials.FindByID(ctx, in.MaterialID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("material %s not found: %w", in.MaterialID, ErrInvalid)
		}
		return nil, fmt.Errorf("check material: %w", err)
	}

	style.BOM = append(style.BOM, entity.BOMItem{
		ID:         newID(),
		MaterialID: in.MaterialID,
		Quantity:   in.Quantity,
		WasteRate:  in.WasteRate,
	})

	return s.recalculateAndSave(ctx, style)
}

func (s *StyleService) UpdateBOMItem(ctx context.Context, id, itemID string, in *UpdateBOMItemInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item := style.FindBOMItem(itemID)
	if item == nil {
		return nil, fmt.Errorf("bom item %s not found: %w", itemID, repository.ErrNotFound)
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalid)
		}
		item.Quantity = *in.Quantity
	}
	if in.WasteRate != nil {
		if *in.WasteRate < 0 {
			return nil, fmt.Errorf("waste rate must not be negative: %w", ErrInvalid)
		}
		item.WasteRate = *in.WasteRate
	}

	return s.recalculateAndSave(ctx, style)
}

func (s *StyleService) DeleteBOMItem(ctx context.Context, id, itemID string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	found := false
	items := style.BOM[:0]
	for _, item := range style.BOM {
		if item.ID == itemID {
			found = true
			continue
		}
		items = append(items, item)
	}
	if !found {
		return nil, fmt.Errorf("bom item %s not found: %w", itemID, repository.ErrNotFound)
	}
	style.BOM = items

	return s.recalculateAndSave(ctx, style)
}

// ---- Routing sub-records ----

func (s *StyleService) AddRoutingStep(ctx context.Context, id string, in *AddRoutingStepInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	style.Routing = append(style.Routing, entity.RoutingStep{
		ID:        newID(),
		Operation: in.Operation,
		Minutes:   in.Minutes,
		LaborRate: in.LaborRate,
	})

	return s.recalculateAndSave(ctx, style)
}

func (s *StyleService) UpdateRoutingStep(ctx context.Context, id, stepID string, in *UpdateRoutingStepInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	step := style.FindRoutingStep(stepID)
	if step == nil {
		return nil, fmt.Errorf("routing step %s not found: %w", stepID, repository.ErrNotFound)
	}
	if in.Operation != nil {
		if *in.Operation == "" {
			return nil, fmt.Errorf("operation must not be empty: %w", ErrInvalid)
		}
		step.Operation = *in.Operation
	}
	if in.Minutes != nil {
		if *in.Minutes <= 0 {
			return nil, fmt.Errorf("minutes must be positive: %w", ErrInvalid)
		}
		step.Minutes = *in.Minutes
	}
	if in.LaborRate != nil {
		if *in.LaborRate <= 0 {
			return nil, fmt.Errorf("labor rate must be positive: %w", ErrInvalid)
		}
		step.LaborRate = *in.LaborRate
	}

	return s.recalculateAndSave(ctx, style)
}

func (s *StyleService) DeleteRoutingStep(ctx context.Context, id, stepID string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	found := false
	steps := style.Routing[:0]
	for _, step := range style.Routing {
		if step.ID == stepID {
			found = true
			continue
		}
		steps = append(steps, step)
	}
	if !found {
		return nil, fmt.Errorf("routing step %s not found: %w", stepID, repository.ErrNotFound)
	}
	style.Routing = steps

	return s.recalculateAndSave(ctx, style)
}

// ReorderRouting replaces the routing sequence with exactly the given
// step ids, in order. Unknown ids are rejected; ids omitted from the
// list drop their steps. Labor cost does not depend on order, so no
// recompute.
func (s *StyleService) ReorderRouting(ctx context.Context, id string, stepIDs []string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.RoutingStep, len(style.Routing))
	for _, step := range style.Routing {
		byID[step.ID] = step
	}
	for _, stepID := range stepIDs {
		if _, ok := byID[stepID]; !ok {
			return nil, fmt.Errorf("routing step %s does not belong to this style: %w", stepID, ErrInvalid)
		}
	}

	reordered := make(entity.RoutingSteps, 0, len(stepIDs))
	for _, stepID := range stepIDs {
		reordered = append(reordered, byID[stepID])
	}
	style.Routing = reordered

	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// ---- Workflow ----

// requireStatus guards a workflow operation against the current status.
func requireStatus(style *entity.Style, op string, allowed ...string) error {
	for _, status := range allowed {
		if style.Status == status {
			return nil
		}
	}
	return fmt.Errorf("cannot %s: style is %s: %w", op, style.Status, ErrInvalid)
}

// SendToAccounting moves a DRAFT style into the pricing queue.
func (s *StyleService) SendToAccounting(ctx context.Context, id string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(style, "send to accounting", entity.StyleStatusDraft); err != nil {
		return nil, err
	}
	style.Status = entity.StyleStatusSentToAccounting
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// SaveDraft pulls a style back to DRAFT from any status.
func (s *StyleService) SaveDraft(ctx context.Context, id string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	style.Status = entity.StyleStatusDraft
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// CreateCostEstimation applies the accounting overlay in full mode.
func (s *StyleService) CreateCostEstimation(ctx context.Context, id string, in *CostEstimationInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(style, "create cost estimation",
		entity.StyleStatusSentToAccounting, entity.StyleStatusCostEstimated); err != nil {
		return nil, err
	}

	applyCostEstimation(style, in, false)

	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// UpdateCostEstimation applies the accounting overlay in partial mode.
func (s *StyleService) UpdateCostEstimation(ctx context.Context, id string, in *CostEstimationInput) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(style, "update cost estimation",
		entity.StyleStatusSentToAccounting, entity.StyleStatusCostEstimated); err != nil {
		return nil, err
	}

	applyCostEstimation(style, in, true)

	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// SubmitCostEstimation finalizes the estimation. The overlay is complete
// when a final price exists, or when material cost, labor cost and margin
// are all set; zero counts as unset.
func (s *StyleService) SubmitCostEstimation(ctx context.Context, id string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(style, "submit cost estimation",
		entity.StyleStatusSentToAccounting, entity.StyleStatusCostEstimated); err != nil {
		return nil, err
	}

	complete := style.AccountingFinalPrice != 0 ||
		(style.EstimatedMaterialCost != 0 && style.EstimatedLaborCost != 0 && style.AccountingProfitMargin != 0)
	if !complete {
		return nil, fmt.Errorf("cost estimation needs a final price, or material cost, labor cost and profit margin: %w", ErrInvalid)
	}

	style.Status = entity.StyleStatusCostEstimated
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// ApproveCostEstimation signs off a submitted estimation.
func (s *StyleService) ApproveCostEstimation(ctx context.Context, id string) (*entity.Style, error) {
	style, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(style, "approve cost estimation", entity.StyleStatusCostEstimated); err != nil {
		return nil, err
	}
	style.Status = entity.StyleStatusCostApproved
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}

// ---- Derived costs ----

// recalculate re-derives the technical cost fields from the current BOM
// and routing. Runs inside every mutation so the stored figures are
// never stale.
func (s *StyleService) recalculate(ctx context.Context, style *entity.Style) error {
	unitCosts := make(map[string]float64)
	if len(style.BOM) > 0 {
		ids := make([]string, 0, len(style.BOM))
		for _, item := range style.BOM {
			ids = append(ids, item.MaterialID)
		}
		materials, err := s.materials.FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load materials: %w", err)
		}
		for _, m := range materials {
			unitCosts[m.ID] = m.CostPerUnit
		}
	}

	costs := ComputeCosts(style.BOM, style.Routing, unitCosts)
	style.EstimatedCost = costs.EstimatedCost
	style.ProposedPrice = costs.ProposedPrice
	return nil
}

func (s *StyleService) recalculateAndSave(ctx context.Context, style *entity.Style) (*entity.Style, error) {
	if err := s.recalculate(ctx, style); err != nil {
		return nil, err
	}
	if err := s.styles.Save(ctx, style); err != nil {
		return nil, fmt.Errorf("save style: %w", err)
	}
	return style, nil
}
