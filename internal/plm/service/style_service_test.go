package service

import (
	"context"
	"errors"
	"testing"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"github.com/xuongmay/garment-plm/internal/plm/testutil"
)

func setupStyleService(t *testing.T) (*StyleService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewStyleService(repos.Style, repos.Material), repos
}

func TestStyleCreate(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "AO-2025-001", Name: "Áo sơ mi nam"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if style.Status != entity.StyleStatusDraft {
		t.Errorf("Status = %s, want DRAFT", style.Status)
	}
	if len(style.BOM) != 0 || len(style.Routing) != 0 {
		t.Error("new style must have empty BOM and routing")
	}
	if style.EstimatedCost != 0 || style.ProposedPrice != 0 {
		t.Error("new style must have zero derived costs")
	}

	// Duplicate code
	_, err = svc.Create(ctx, &CreateStyleInput{Code: "AO-2025-001", Name: "Trùng mã"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate code error = %v, want ErrConflict", err)
	}

	// Lowercase code rejected
	_, err = svc.Create(ctx, &CreateStyleInput{Code: "ao-2025-002", Name: "Mã thường"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid code error = %v, want ErrInvalid", err)
	}
}

func TestStyleAddBOMItemRecomputes(t *testing.T) {
	svc, repos := setupStyleService(t)
	ctx := context.Background()

	mat := &entity.Material{ID: "mat-001", Name: "Vải kate", Unit: "m", CostPerUnit: 10}
	if err := repos.Material.Create(ctx, mat); err != nil {
		t.Fatalf("seed material: %v", err)
	}

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "QT-001", Name: "Quần tây"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	style, err = svc.AddBOMItem(ctx, style.ID, &AddBOMItemInput{
		MaterialID: "mat-001", Quantity: 5, WasteRate: 10,
	})
	if err != nil {
		t.Fatalf("AddBOMItem failed: %v", err)
	}
	if style.EstimatedCost != 55 {
		t.Errorf("EstimatedCost = %v, want 55", style.EstimatedCost)
	}
	if style.ProposedPrice != 72 {
		t.Errorf("ProposedPrice = %v, want 72", style.ProposedPrice)
	}

	// Unknown material rejected at add time
	_, err = svc.AddBOMItem(ctx, style.ID, &AddBOMItemInput{
		MaterialID: "no-such", Quantity: 1,
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown material error = %v, want ErrInvalid", err)
	}

	// Update recomputes
	itemID := style.BOM[0].ID
	qty := 10.0
	style, err = svc.UpdateBOMItem(ctx, style.ID, itemID, &UpdateBOMItemInput{Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateBOMItem failed: %v", err)
	}
	if style.EstimatedCost != 110 {
		t.Errorf("EstimatedCost after update = %v, want 110", style.EstimatedCost)
	}

	// Delete zeroes back out
	style, err = svc.DeleteBOMItem(ctx, style.ID, itemID)
	if err != nil {
		t.Fatalf("DeleteBOMItem failed: %v", err)
	}
	if style.EstimatedCost != 0 || style.ProposedPrice != 0 {
		t.Errorf("costs after delete = %v/%v, want 0/0", style.EstimatedCost, style.ProposedPrice)
	}

	_, err = svc.DeleteBOMItem(ctx, style.ID, itemID)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("delete missing item error = %v, want ErrNotFound", err)
	}
}

func TestStyleRoutingReorder(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "DAM-001", Name: "Đầm dạ hội"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, op := range []string{"Cắt", "May", "Ủi"} {
		style, err = svc.AddRoutingStep(ctx, style.ID, &AddRoutingStepInput{
			Operation: op, Minutes: 30, LaborRate: 60,
		})
		if err != nil {
			t.Fatalf("AddRoutingStep(%s) failed: %v", op, err)
		}
	}
	// 3 * 30 min at 60/h = 90
	if style.EstimatedCost != 90 {
		t.Errorf("EstimatedCost = %v, want 90", style.EstimatedCost)
	}

	a, b, c := style.Routing[0].ID, style.Routing[1].ID, style.Routing[2].ID

	// Unknown id rejected
	_, err = svc.ReorderRouting(ctx, style.ID, []string{a, "bogus", c})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown step id error = %v, want ErrInvalid", err)
	}

	// Permutation applies in the given order
	style, err = svc.ReorderRouting(ctx, style.ID, []string{c, a, b})
	if err != nil {
		t.Fatalf("ReorderRouting failed: %v", err)
	}
	if style.Routing[0].ID != c || style.Routing[1].ID != a || style.Routing[2].ID != b {
		t.Error("routing order does not match requested sequence")
	}

	// Omitted ids drop their steps, cost follows on the next recompute path
	style, err = svc.ReorderRouting(ctx, style.ID, []string{a})
	if err != nil {
		t.Fatalf("ReorderRouting subset failed: %v", err)
	}
	if len(style.Routing) != 1 || style.Routing[0].ID != a {
		t.Errorf("routing after subset reorder = %d steps, want just %s", len(style.Routing), a)
	}
}

func TestStyleUpdateRoutingStepRejectsZeroRate(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "RATE-001", Name: "Áo gió"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	style, err = svc.AddRoutingStep(ctx, style.ID, &AddRoutingStepInput{
		Operation: "May", Minutes: 30, LaborRate: 60,
	})
	if err != nil {
		t.Fatalf("AddRoutingStep failed: %v", err)
	}
	stepID := style.Routing[0].ID

	zero := 0.0
	_, err = svc.UpdateRoutingStep(ctx, style.ID, stepID, &UpdateRoutingStepInput{LaborRate: &zero})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("zero labor rate error = %v, want ErrInvalid", err)
	}

	negative := -5.0
	_, err = svc.UpdateRoutingStep(ctx, style.ID, stepID, &UpdateRoutingStepInput{LaborRate: &negative})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("negative labor rate error = %v, want ErrInvalid", err)
	}

	// The stored step keeps its original rate after the rejected updates.
	reloaded, err := svc.Get(ctx, style.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if reloaded.Routing[0].LaborRate != 60 {
		t.Errorf("LaborRate = %v, want 60 untouched", reloaded.Routing[0].LaborRate)
	}
}

func TestStyleUpdateRecomputesFromCatalog(t *testing.T) {
	svc, repos := setupStyleService(t)
	ctx := context.Background()

	mat := &entity.Material{ID: "mat-cat", Name: "Vải jean", Unit: "m", CostPerUnit: 10}
	if err := repos.Material.Create(ctx, mat); err != nil {
		t.Fatalf("seed material: %v", err)
	}

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "JEAN-001", Name: "Quần jean"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	style, err = svc.AddBOMItem(ctx, style.ID, &AddBOMItemInput{
		MaterialID: "mat-cat", Quantity: 5, WasteRate: 10,
	})
	if err != nil {
		t.Fatalf("AddBOMItem failed: %v", err)
	}
	if style.EstimatedCost != 55 {
		t.Fatalf("EstimatedCost = %v, want 55", style.EstimatedCost)
	}

	// Material price changes in the catalog behind the style's back.
	mat.CostPerUnit = 20
	if err := repos.Material.Update(ctx, mat); err != nil {
		t.Fatalf("update material: %v", err)
	}

	// A cost-irrelevant edit still recomputes against the catalog.
	name := "Quần jean nam"
	style, err = svc.Update(ctx, style.ID, &UpdateStyleInput{Name: &name})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if style.EstimatedCost != 110 {
		t.Errorf("EstimatedCost = %v, want 110 at the new unit cost", style.EstimatedCost)
	}
	if style.ProposedPrice != 143 {
		t.Errorf("ProposedPrice = %v, want ceil(110*1.3)=143", style.ProposedPrice)
	}
}

func TestStyleWorkflow(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "WF-001", Name: "Áo khoác"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Cost estimation is gated until the style reaches accounting
	_, err = svc.CreateCostEstimation(ctx, style.ID, &CostEstimationInput{})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("estimation on DRAFT error = %v, want ErrInvalid", err)
	}

	style, err = svc.SendToAccounting(ctx, style.ID)
	if err != nil {
		t.Fatalf("SendToAccounting failed: %v", err)
	}
	if style.Status != entity.StyleStatusSentToAccounting {
		t.Errorf("Status = %s, want SENT_TO_ACCOUNTING", style.Status)
	}

	// Sending twice is not allowed
	_, err = svc.SendToAccounting(ctx, style.ID)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("double send error = %v, want ErrInvalid", err)
	}

	// Incomplete estimation cannot be submitted
	_, err = svc.SubmitCostEstimation(ctx, style.ID)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("incomplete submit error = %v, want ErrInvalid", err)
	}

	style, err = svc.CreateCostEstimation(ctx, style.ID, &CostEstimationInput{
		EstimatedMaterialCost: f(100),
		EstimatedLaborCost:    f(50),
		ProfitMargin:          f(20),
	})
	if err != nil {
		t.Fatalf("CreateCostEstimation failed: %v", err)
	}
	if style.AccountingFinalPrice != 180 {
		t.Errorf("AccountingFinalPrice = %v, want 180", style.AccountingFinalPrice)
	}

	style, err = svc.SubmitCostEstimation(ctx, style.ID)
	if err != nil {
		t.Fatalf("SubmitCostEstimation failed: %v", err)
	}
	if style.Status != entity.StyleStatusCostEstimated {
		t.Errorf("Status = %s, want COST_ESTIMATED", style.Status)
	}

	style, err = svc.ApproveCostEstimation(ctx, style.ID)
	if err != nil {
		t.Fatalf("ApproveCostEstimation failed: %v", err)
	}
	if style.Status != entity.StyleStatusCostApproved {
		t.Errorf("Status = %s, want COST_APPROVED", style.Status)
	}

	// Approving twice is not allowed
	_, err = svc.ApproveCostEstimation(ctx, style.ID)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("double approve error = %v, want ErrInvalid", err)
	}

	// SaveDraft pulls back from any status
	style, err = svc.SaveDraft(ctx, style.ID)
	if err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if style.Status != entity.StyleStatusDraft {
		t.Errorf("Status = %s, want DRAFT", style.Status)
	}
}

func TestStyleSubmitWithFinalPriceOnly(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "WF-002", Name: "Váy công sở"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err = svc.SendToAccounting(ctx, style.ID); err != nil {
		t.Fatalf("SendToAccounting failed: %v", err)
	}
	if _, err = svc.CreateCostEstimation(ctx, style.ID, &CostEstimationInput{FinalPrice: f(250)}); err != nil {
		t.Fatalf("CreateCostEstimation failed: %v", err)
	}

	style, err = svc.SubmitCostEstimation(ctx, style.ID)
	if err != nil {
		t.Fatalf("SubmitCostEstimation failed: %v", err)
	}
	if style.Status != entity.StyleStatusCostEstimated {
		t.Errorf("Status = %s, want COST_ESTIMATED", style.Status)
	}
}

func TestStyleRemoveOnlyDraft(t *testing.T) {
	svc, _ := setupStyleService(t)
	ctx := context.Background()

	style, err := svc.Create(ctx, &CreateStyleInput{Code: "DEL-001", Name: "Xóa được"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.SendToAccounting(ctx, style.ID); err != nil {
		t.Fatalf("SendToAccounting failed: %v", err)
	}

	if err := svc.Remove(ctx, style.ID); !errors.Is(err, ErrInvalid) {
		t.Errorf("remove non-draft error = %v, want ErrInvalid", err)
	}

	if _, err := svc.SaveDraft(ctx, style.ID); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if err := svc.Remove(ctx, style.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := svc.Get(ctx, style.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("get deleted style error = %v, want ErrNotFound", err)
	}
}

func TestStyleVersionConflict(t *testing.T) {
	svc, repos := setupStyleService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateStyleInput{Code: "VER-001", Name: "Đồng thời"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := repos.Style.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	second, err := repos.Style.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	first.Name = "Người A"
	if err := repos.Style.Save(ctx, first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second.Name = "Người B"
	err = repos.Style.Save(ctx, second)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("stale save error = %v, want ErrVersionConflict", err)
	}

	// Reloading picks up the winning write and can save again
	reloaded, err := repos.Style.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Name != "Người A" {
		t.Errorf("Name = %q, want winning write kept", reloaded.Name)
	}
	reloaded.Name = "Người B"
	if err := repos.Style.Save(ctx, reloaded); err != nil {
		t.Fatalf("save after reload failed: %v", err)
	}
}
