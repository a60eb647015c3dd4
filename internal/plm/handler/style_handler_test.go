package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"github.com/xuongmay/garment-plm/internal/plm/service"
	"github.com/xuongmay/garment-plm/internal/plm/testutil"
	"gorm.io/gorm"
)

func setupStyleRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	styleSvc := service.NewStyleService(repos.Style, repos.Material)
	exportSvc := service.NewExportService(repos.Style, repos.Material)
	h := NewStyleHandler(styleSvc, exportSvc, nil)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1")
	styles := api.Group("/styles")
	{
		styles.GET("/export/excel", h.ExportExcel)
		styles.POST("/export/excel", h.ExportExcel)

		styles.GET("", h.List)
		styles.GET("/:id", h.Get)
		styles.POST("", h.Create)
		styles.PATCH("/:id", h.Update)
		styles.DELETE("/:id", h.Delete)

		styles.POST("/:id/bom", h.AddBOMItem)
		styles.POST("/:id/routing", h.AddRoutingStep)
		styles.PATCH("/:id/routing/:stepId", h.UpdateRoutingStep)
		styles.POST("/:id/reorder-routing", h.ReorderRouting)

		styles.POST("/:id/send-to-accounting", h.SendToAccounting)
		styles.POST("/:id/save-draft", h.SaveDraft)
		styles.POST("/:id/cost-estimation", h.CreateCostEstimation)
		styles.PATCH("/:id/cost-estimation", h.UpdateCostEstimation)
		styles.POST("/:id/submit-cost-estimation", h.SubmitCostEstimation)
		styles.POST("/:id/approve-cost-estimation", h.ApproveCostEstimation)
	}
	return r, db
}

func createTestStyle(t *testing.T, r *gin.Engine, code, name string) string {
	t.Helper()
	w := testutil.DoRequest(r, "POST", "/api/v1/styles", map[string]interface{}{
		"code": code,
		"name": name,
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("create style returned %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestStyleHandlerCreate(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(r, "POST", "/api/v1/styles", map[string]interface{}{
		"code": "AO-001",
		"name": "Áo sơ mi",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.StyleStatusDraft {
		t.Errorf("status = %v, want DRAFT", data["status"])
	}

	// Duplicate code
	w = testutil.DoRequest(r, "POST", "/api/v1/styles", map[string]interface{}{
		"code": "AO-001",
		"name": "Trùng mã",
	}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}

	// Missing name fails binding
	w = testutil.DoRequest(r, "POST", "/api/v1/styles", map[string]interface{}{
		"code": "AO-002",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}

	// No token
	w = testutil.DoRequest(r, "GET", "/api/v1/styles", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
}

func TestStyleHandlerBOM(t *testing.T) {
	r, db := setupStyleRouter(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestMaterial(t, db, "mat-001", "Vải kate", 10)

	id := createTestStyle(t, r, "QT-001", "Quần tây")

	w := testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/bom", map[string]interface{}{
		"material_id": "mat-001",
		"quantity":    5,
		"waste_rate":  10,
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("add bom status = %d, want 201: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["proposed_price"].(float64) != 72 {
		t.Errorf("proposed_price = %v, want 72", data["proposed_price"])
	}

	// Unknown material
	w = testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/bom", map[string]interface{}{
		"material_id": "no-such",
		"quantity":    1,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown material status = %d, want 400", w.Code)
	}
}

func TestStyleHandlerRoutingValidation(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()
	id := createTestStyle(t, r, "RT-001", "Áo vest")

	// Zero labor rate fails binding
	w := testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/routing", map[string]interface{}{
		"operation":  "May",
		"minutes":    30,
		"labor_rate": 0,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero labor_rate status = %d, want 400", w.Code)
	}

	// Missing labor rate fails binding
	w = testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/routing", map[string]interface{}{
		"operation": "May",
		"minutes":   30,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing labor_rate status = %d, want 400", w.Code)
	}

	// Positive rate passes
	w = testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/routing", map[string]interface{}{
		"operation":  "May",
		"minutes":    30,
		"labor_rate": 60,
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("valid routing step status = %d, want 201: %s", w.Code, w.Body.String())
	}

	// Zero rate rejected on update too
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	steps := data["routing"].([]interface{})
	stepID := steps[0].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(r, "PATCH", "/api/v1/styles/"+id+"/routing/"+stepID, map[string]interface{}{
		"labor_rate": 0,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero labor_rate update status = %d, want 400", w.Code)
	}
}

func TestStyleHandlerWorkflow(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()
	id := createTestStyle(t, r, "WF-001", "Áo khoác")

	post := func(path string, body interface{}) int {
		w := testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+path, body, token)
		return w.Code
	}

	if code := post("/send-to-accounting", nil); code != http.StatusOK {
		t.Fatalf("send-to-accounting = %d, want 200", code)
	}
	// Illegal repeat
	if code := post("/send-to-accounting", nil); code != http.StatusBadRequest {
		t.Errorf("double send = %d, want 400", code)
	}
	// Incomplete submit
	if code := post("/submit-cost-estimation", nil); code != http.StatusBadRequest {
		t.Errorf("incomplete submit = %d, want 400", code)
	}

	if code := post("/cost-estimation", map[string]interface{}{
		"estimated_material_cost": 100,
		"estimated_labor_cost":    50,
		"profit_margin":           20,
	}); code != http.StatusOK {
		t.Fatalf("cost-estimation = %d, want 200", code)
	}
	if code := post("/submit-cost-estimation", nil); code != http.StatusOK {
		t.Fatalf("submit = %d, want 200", code)
	}
	if code := post("/approve-cost-estimation", nil); code != http.StatusOK {
		t.Fatalf("approve = %d, want 200", code)
	}

	w := testutil.DoRequest(r, "GET", "/api/v1/styles/"+id, nil, token)
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.StyleStatusCostApproved {
		t.Errorf("status = %v, want COST_APPROVED", data["status"])
	}
	if data["accounting_final_price"].(float64) != 180 {
		t.Errorf("accounting_final_price = %v, want 180", data["accounting_final_price"])
	}
}

func TestStyleHandlerDeleteOnlyDraft(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()
	id := createTestStyle(t, r, "DEL-001", "Xóa thử")

	testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/send-to-accounting", nil, token)

	w := testutil.DoRequest(r, "DELETE", "/api/v1/styles/"+id, nil, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("delete non-draft = %d, want 400", w.Code)
	}

	testutil.DoRequest(r, "POST", "/api/v1/styles/"+id+"/save-draft", nil, token)
	w = testutil.DoRequest(r, "DELETE", "/api/v1/styles/"+id, nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("delete draft = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/styles/"+id, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestStyleHandlerExport(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()

	// Nothing to export yet
	w := testutil.DoRequest(r, "GET", "/api/v1/styles/export/excel?export_all=true", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty export = %d, want 400", w.Code)
	}

	createTestStyle(t, r, "EXP-001", "Mẫu xuất file")

	w = testutil.DoRequest(r, "GET", "/api/v1/styles/export/excel?export_all=true", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, want 200: %s", w.Code, w.Body.String())
	}
	wantType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if ct := w.Header().Get("Content-Type"); ct != wantType {
		t.Errorf("Content-Type = %q, want %q", ct, wantType)
	}
	wantPrefix := "attachment; filename="
	if cd := w.Header().Get("Content-Disposition"); len(cd) < len(wantPrefix) || cd[:len(wantPrefix)] != wantPrefix {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("export body is empty")
	}
}

func TestStyleHandlerExportPostBody(t *testing.T) {
	r, _ := setupStyleRouter(t)
	token := testutil.DefaultTestToken()
	createTestStyle(t, r, "EXP-010", "Mẫu A")
	createTestStyle(t, r, "EXP-020", "Mẫu B")

	w := testutil.DoRequest(r, "POST", "/api/v1/styles/export/excel", map[string]interface{}{
		"export_all":  true,
		"include_bom": false,
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export with body = %d, want 200: %s", w.Code, w.Body.String())
	}
	if w.Body.Len() == 0 {
		t.Error("export body is empty")
	}

	// Body filter that matches nothing is a caller error
	w = testutil.DoRequest(r, "POST", "/api/v1/styles/export/excel", map[string]interface{}{
		"style_ids": []string{"no-such"},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body filter = %d, want 400", w.Code)
	}

	// Bodyless POST falls back to the query contract
	w = testutil.DoRequest(r, "POST", "/api/v1/styles/export/excel?export_all=true", nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("bodyless POST export = %d, want 200: %s", w.Code, w.Body.String())
	}
}
