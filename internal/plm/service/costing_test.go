package service

import (
	"testing"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
)

func f(v float64) *float64 { return &v }

func TestComputeCosts_MaterialWithWaste(t *testing.T) {
	bom := entity.BOMItems{
		{ID: "b1", MaterialID: "m1", Quantity: 5, WasteRate: 10},
	}
	unitCosts := map[string]float64{"m1": 10}

	got := ComputeCosts(bom, nil, unitCosts)

	// 5 * 1.10 * 10 = 55
	if got.MaterialCost != 55 {
		t.Errorf("MaterialCost = %v, want 55", got.MaterialCost)
	}
	if got.EstimatedCost != 55 {
		t.Errorf("EstimatedCost = %v, want 55", got.EstimatedCost)
	}
	// ceil(55 * 1.3) = ceil(71.5) = 72
	if got.ProposedPrice != 72 {
		t.Errorf("ProposedPrice = %v, want 72", got.ProposedPrice)
	}
}

func TestComputeCosts_UnresolvedMaterialContributesZero(t *testing.T) {
	bom := entity.BOMItems{
		{ID: "b1", MaterialID: "m1", Quantity: 5, WasteRate: 10},
		{ID: "b2", MaterialID: "gone", Quantity: 100, WasteRate: 0},
	}
	unitCosts := map[string]float64{"m1": 10}

	got := ComputeCosts(bom, nil, unitCosts)

	if got.MaterialCost != 55 {
		t.Errorf("MaterialCost = %v, want 55 (unknown material must contribute zero)", got.MaterialCost)
	}
}

func TestComputeCosts_Labor(t *testing.T) {
	routing := entity.RoutingSteps{
		{ID: "r1", Operation: "May thân", Minutes: 90, LaborRate: 60},
		{ID: "r2", Operation: "Vắt sổ", Minutes: 30, LaborRate: 40},
	}

	got := ComputeCosts(nil, routing, nil)

	// 90*60/60 + 30*40/60 = 90 + 20 = 110
	if got.LaborCost != 110 {
		t.Errorf("LaborCost = %v, want 110", got.LaborCost)
	}
	if got.EstimatedCost != 110 {
		t.Errorf("EstimatedCost = %v, want 110", got.EstimatedCost)
	}
	// ceil(110 * 1.3) = 143
	if got.ProposedPrice != 143 {
		t.Errorf("ProposedPrice = %v, want 143", got.ProposedPrice)
	}
}

func TestComputeCosts_Empty(t *testing.T) {
	got := ComputeCosts(nil, nil, nil)
	if got.MaterialCost != 0 || got.LaborCost != 0 || got.EstimatedCost != 0 || got.ProposedPrice != 0 {
		t.Errorf("empty inputs must produce all-zero breakdown, got %+v", got)
	}
}

func TestDeriveFinalPrice(t *testing.T) {
	// (100 + 50) * 1.20 = 180, already whole
	if got := deriveFinalPrice(100, 50, 20); got != 180 {
		t.Errorf("deriveFinalPrice(100, 50, 20) = %v, want 180", got)
	}
	// (100 + 0.5) * 1.0 = 100.5 -> 101
	if got := deriveFinalPrice(100, 0.5, 0); got != 101 {
		t.Errorf("deriveFinalPrice(100, 0.5, 0) = %v, want 101", got)
	}
}

func TestApplyCostEstimation_FullDerivesFinalPrice(t *testing.T) {
	style := &entity.Style{}
	in := &CostEstimationInput{
		EstimatedMaterialCost: f(100),
		EstimatedLaborCost:    f(50),
		ProfitMargin:          f(20),
	}

	applyCostEstimation(style, in, false)

	if style.EstimatedMaterialCost != 100 || style.EstimatedLaborCost != 50 {
		t.Errorf("cost figures = %v/%v, want 100/50", style.EstimatedMaterialCost, style.EstimatedLaborCost)
	}
	if style.AccountingFinalPrice != 180 {
		t.Errorf("AccountingFinalPrice = %v, want derived 180", style.AccountingFinalPrice)
	}
}

func TestApplyCostEstimation_FullKeepsSuppliedFinalPrice(t *testing.T) {
	style := &entity.Style{}
	in := &CostEstimationInput{
		EstimatedMaterialCost: f(100),
		EstimatedLaborCost:    f(50),
		ProfitMargin:          f(20),
		FinalPrice:            f(200),
	}

	applyCostEstimation(style, in, false)

	if style.AccountingFinalPrice != 200 {
		t.Errorf("AccountingFinalPrice = %v, want supplied 200", style.AccountingFinalPrice)
	}
}

func TestApplyCostEstimation_FullZeroFinalPriceCountsAsUnset(t *testing.T) {
	style := &entity.Style{}
	in := &CostEstimationInput{
		EstimatedMaterialCost: f(100),
		EstimatedLaborCost:    f(50),
		FinalPrice:            f(0),
	}

	applyCostEstimation(style, in, false)

	// margin absent counts as zero: ceil(150 * 1.0) = 150
	if style.AccountingFinalPrice != 150 {
		t.Errorf("AccountingFinalPrice = %v, want derived 150", style.AccountingFinalPrice)
	}
}

func TestApplyCostEstimation_FullNoDerivationWithOneCostFigure(t *testing.T) {
	style := &entity.Style{EstimatedLaborCost: 40}
	in := &CostEstimationInput{
		EstimatedMaterialCost: f(100),
	}

	applyCostEstimation(style, in, false)

	if style.AccountingFinalPrice != 0 {
		t.Errorf("AccountingFinalPrice = %v, want 0 (full mode derives only when both figures arrive)", style.AccountingFinalPrice)
	}
	// Full mode falls back to stored values for absent fields.
	if style.EstimatedLaborCost != 40 {
		t.Errorf("EstimatedLaborCost = %v, want 40 kept", style.EstimatedLaborCost)
	}
}

func TestApplyCostEstimation_PartialFallsBackToStored(t *testing.T) {
	style := &entity.Style{
		EstimatedMaterialCost:  100,
		EstimatedLaborCost:     50,
		AccountingProfitMargin: 20,
		AccountingNotes:        "giữ nguyên",
	}
	in := &CostEstimationInput{
		EstimatedLaborCost: f(80),
	}

	applyCostEstimation(style, in, true)

	if style.EstimatedMaterialCost != 100 {
		t.Errorf("EstimatedMaterialCost = %v, want 100 untouched", style.EstimatedMaterialCost)
	}
	if style.EstimatedLaborCost != 80 {
		t.Errorf("EstimatedLaborCost = %v, want 80", style.EstimatedLaborCost)
	}
	// Derived from stored material 100 + new labor 80 at stored margin 20:
	// ceil(180 * 1.2) = 216
	if style.AccountingFinalPrice != 216 {
		t.Errorf("AccountingFinalPrice = %v, want 216", style.AccountingFinalPrice)
	}
	if style.AccountingNotes != "giữ nguyên" {
		t.Errorf("AccountingNotes = %q, want untouched", style.AccountingNotes)
	}
}

func TestApplyCostEstimation_PartialNoCostChangeNoDerivation(t *testing.T) {
	style := &entity.Style{
		EstimatedMaterialCost: 100,
		EstimatedLaborCost:    50,
	}
	in := &CostEstimationInput{
		Notes: sp("chỉ sửa ghi chú"),
	}

	applyCostEstimation(style, in, true)

	if style.AccountingFinalPrice != 0 {
		t.Errorf("AccountingFinalPrice = %v, want 0 (notes-only update must not derive)", style.AccountingFinalPrice)
	}
	if style.AccountingNotes != "chỉ sửa ghi chú" {
		t.Errorf("AccountingNotes = %q, want updated", style.AccountingNotes)
	}
}

func TestApplyCostEstimation_AdjustedCollectionsGetIDs(t *testing.T) {
	style := &entity.Style{}
	in := &CostEstimationInput{
		AdjustedBOM: &entity.BOMItems{
			{MaterialID: "m1", Quantity: 2},
			{ID: "keep-me", MaterialID: "m2", Quantity: 1},
		},
		AdjustedRouting: &entity.RoutingSteps{
			{Operation: "Ủi", Minutes: 10, LaborRate: 30},
		},
	}

	applyCostEstimation(style, in, true)

	if len(style.AdjustedBOM) != 2 {
		t.Fatalf("AdjustedBOM size = %d, want 2", len(style.AdjustedBOM))
	}
	if style.AdjustedBOM[0].ID == "" {
		t.Error("missing id on adjusted BOM line must be backfilled")
	}
	if style.AdjustedBOM[1].ID != "keep-me" {
		t.Errorf("existing id = %q, want keep-me", style.AdjustedBOM[1].ID)
	}
	if len(style.AdjustedRouting) != 1 || style.AdjustedRouting[0].ID == "" {
		t.Error("adjusted routing step must get an id")
	}
}

func sp(s string) *string { return &s }
