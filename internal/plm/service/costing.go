package service

import (
	"math"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
)

// profitMultiplier is the factory's standard markup on the technical
// cost total when proposing a selling price.
const profitMultiplier = 1.3

// CostBreakdown holds the derived cost figures of one style.
type CostBreakdown struct {
	MaterialCost  float64 `json:"material_cost"`
	LaborCost     float64 `json:"labor_cost"`
	EstimatedCost float64 `json:"estimated_cost"`
	ProposedPrice float64 `json:"proposed_price"`
}

// ComputeCosts derives the technical cost figures from a BOM and routing.
// Unit costs are keyed by material id; BOM lines whose material does not
// resolve contribute zero. The proposed price is rounded up to a whole
// currency unit.
func ComputeCosts(bom entity.BOMItems, routing entity.RoutingSteps, unitCosts map[string]float64) CostBreakdown {
	var materialCost float64
	for _, item := range bom {
		unitCost, ok := unitCosts[item.MaterialID]
		if !ok {
			continue
		}
		materialCost += item.Quantity * (1 + item.WasteRate/100) * unitCost
	}

	var laborCost float64
	for _, step := range routing {
		laborCost += step.Minutes * step.LaborRate / 60
	}

	total := materialCost + laborCost
	return CostBreakdown{
		MaterialCost:  materialCost,
		LaborCost:     laborCost,
		EstimatedCost: total,
		ProposedPrice: math.Ceil(total * profitMultiplier),
	}
}

// CostEstimationInput carries the accounting overlay fields of one
// request. Nil means "not supplied"; zero values are real values except
// where the derivation rules below treat zero as unset.
type CostEstimationInput struct {
	EstimatedMaterialCost *float64             `json:"estimated_material_cost"`
	EstimatedLaborCost    *float64             `json:"estimated_labor_cost"`
	ProfitMargin          *float64             `json:"profit_margin"`
	FinalPrice            *float64             `json:"final_price"`
	AdjustedBOM           *entity.BOMItems     `json:"adjusted_bom"`
	AdjustedRouting       *entity.RoutingSteps `json:"adjusted_routing"`
	Notes                 *string              `json:"notes"`
}

// deriveFinalPrice rounds (material + labor) marked up by margin percent
// up to a whole currency unit.
func deriveFinalPrice(materialCost, laborCost, margin float64) float64 {
	return math.Ceil((materialCost + laborCost) * (1 + margin/100))
}

// applyCostEstimation merges the incoming overlay onto the style.
//
// Full mode (partial=false) rewrites every overlay field, taking the
// incoming value and falling back to the stored one. The final price is
// derived only when it was not supplied (or supplied as zero) and both
// cost figures arrive in the same request, using the incoming values and
// the incoming margin (absent margin counts as zero).
//
// Partial mode overwrites only supplied fields. The final price is
// derived when it is absent or zero and at least one cost figure changes,
// filling the missing terms from stored values.
func applyCostEstimation(style *entity.Style, in *CostEstimationInput, partial bool) {
	finalPrice := in.FinalPrice

	if partial {
		if (finalPrice == nil || *finalPrice == 0) &&
			(in.EstimatedMaterialCost != nil || in.EstimatedLaborCost != nil) {
			derived := deriveFinalPrice(
				floatOr(in.EstimatedMaterialCost, style.EstimatedMaterialCost),
				floatOr(in.EstimatedLaborCost, style.EstimatedLaborCost),
				floatOr(in.ProfitMargin, style.AccountingProfitMargin),
			)
			finalPrice = &derived
		}

		if in.EstimatedMaterialCost != nil {
			style.EstimatedMaterialCost = *in.EstimatedMaterialCost
		}
		if in.EstimatedLaborCost != nil {
			style.EstimatedLaborCost = *in.EstimatedLaborCost
		}
		if in.ProfitMargin != nil {
			style.AccountingProfitMargin = *in.ProfitMargin
		}
		if finalPrice != nil {
			style.AccountingFinalPrice = *finalPrice
		}
		if in.Notes != nil {
			style.AccountingNotes = *in.Notes
		}
	} else {
		if (finalPrice == nil || *finalPrice == 0) &&
			in.EstimatedMaterialCost != nil && in.EstimatedLaborCost != nil {
			derived := deriveFinalPrice(
				*in.EstimatedMaterialCost,
				*in.EstimatedLaborCost,
				floatOr(in.ProfitMargin, 0),
			)
			finalPrice = &derived
		}

		style.EstimatedMaterialCost = floatOr(in.EstimatedMaterialCost, style.EstimatedMaterialCost)
		style.EstimatedLaborCost = floatOr(in.EstimatedLaborCost, style.EstimatedLaborCost)
		style.AccountingProfitMargin = floatOr(in.ProfitMargin, style.AccountingProfitMargin)
		style.AccountingFinalPrice = floatOr(finalPrice, style.AccountingFinalPrice)
		if in.Notes != nil {
			style.AccountingNotes = *in.Notes
		}
	}

	if in.AdjustedBOM != nil {
		items := *in.AdjustedBOM
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = newID()
			}
		}
		style.AdjustedBOM = items
	}
	if in.AdjustedRouting != nil {
		steps := *in.AdjustedRouting
		for i := range steps {
			if steps[i].ID == "" {
				steps[i].ID = newID()
			}
		}
		style.AdjustedRouting = steps
	}
}

func floatOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}
