package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuongmay/garment-plm/internal/plm/service"
)

// allowed image mimetypes for style photos
var allowedImageTypes = map[string]bool{
	"image/jpg":  true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

const maxImageSize = 5 << 20 // 5MB

type StyleHandler struct {
	styles *service.StyleService
	export *service.ExportService
	assets *service.AssetService
}

func NewStyleHandler(styles *service.StyleService, export *service.ExportService, assets *service.AssetService) *StyleHandler {
	return &StyleHandler{styles: styles, export: export, assets: assets}
}

// List GET /styles?status=DRAFT
func (h *StyleHandler) List(c *gin.Context) {
	styles, err := h.styles.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": styles})
}

// Get GET /styles/:id
func (h *StyleHandler) Get(c *gin.Context) {
	style, err := h.styles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// Create POST /styles
func (h *StyleHandler) Create(c *gin.Context) {
	var in service.CreateStyleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.Create(c.Request.Context(), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, style)
}

// Update PATCH /styles/:id
func (h *StyleHandler) Update(c *gin.Context) {
	var in service.UpdateStyleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.Update(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// Delete DELETE /styles/:id
func (h *StyleHandler) Delete(c *gin.Context) {
	if err := h.styles.Remove(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// UploadImage POST /styles/:id/image
func (h *StyleHandler) UploadImage(c *gin.Context) {
	if h.assets == nil {
		InternalError(c, "asset storage is not configured")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "no file uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		BadRequest(c, "only jpg, jpeg, png, gif and webp images are allowed")
		return
	}
	if header.Size > maxImageSize {
		BadRequest(c, "image must not exceed 5MB")
		return
	}

	imageURL, err := h.assets.Upload(c.Request.Context(), "styles", header.Filename, contentType, file, header.Size)
	if err != nil {
		InternalError(c, "upload image: "+err.Error())
		return
	}

	style, err := h.styles.SetImage(c.Request.Context(), c.Param("id"), imageURL)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ---- BOM sub-records ----

// AddBOMItem POST /styles/:id/bom
func (h *StyleHandler) AddBOMItem(c *gin.Context) {
	var in service.AddBOMItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.AddBOMItem(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, style)
}

// UpdateBOMItem PATCH /styles/:id/bom/:itemId
func (h *StyleHandler) UpdateBOMItem(c *gin.Context) {
	var in service.UpdateBOMItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.UpdateBOMItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// DeleteBOMItem DELETE /styles/:id/bom/:itemId
func (h *StyleHandler) DeleteBOMItem(c *gin.Context) {
	style, err := h.styles.DeleteBOMItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ---- Routing sub-records ----

// AddRoutingStep POST /styles/:id/routing
func (h *StyleHandler) AddRoutingStep(c *gin.Context) {
	var in service.AddRoutingStepInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.AddRoutingStep(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, style)
}

// UpdateRoutingStep PATCH /styles/:id/routing/:stepId
func (h *StyleHandler) UpdateRoutingStep(c *gin.Context) {
	var in service.UpdateRoutingStepInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.UpdateRoutingStep(c.Request.Context(), c.Param("id"), c.Param("stepId"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// DeleteRoutingStep DELETE /styles/:id/routing/:stepId
func (h *StyleHandler) DeleteRoutingStep(c *gin.Context) {
	style, err := h.styles.DeleteRoutingStep(c.Request.Context(), c.Param("id"), c.Param("stepId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ReorderRouting POST /styles/:id/reorder-routing
func (h *StyleHandler) ReorderRouting(c *gin.Context) {
	var in service.ReorderRoutingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.ReorderRouting(c.Request.Context(), c.Param("id"), in.StepIDs)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ---- Workflow ----

// SendToAccounting POST /styles/:id/send-to-accounting
func (h *StyleHandler) SendToAccounting(c *gin.Context) {
	style, err := h.styles.SendToAccounting(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// SaveDraft POST /styles/:id/save-draft
func (h *StyleHandler) SaveDraft(c *gin.Context) {
	style, err := h.styles.SaveDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// CreateCostEstimation POST /styles/:id/cost-estimation
func (h *StyleHandler) CreateCostEstimation(c *gin.Context) {
	var in service.CostEstimationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.CreateCostEstimation(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// UpdateCostEstimation PATCH /styles/:id/cost-estimation
func (h *StyleHandler) UpdateCostEstimation(c *gin.Context) {
	var in service.CostEstimationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	style, err := h.styles.UpdateCostEstimation(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// SubmitCostEstimation POST /styles/:id/submit-cost-estimation
func (h *StyleHandler) SubmitCostEstimation(c *gin.Context) {
	style, err := h.styles.SubmitCostEstimation(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ApproveCostEstimation POST /styles/:id/approve-cost-estimation
func (h *StyleHandler) ApproveCostEstimation(c *gin.Context) {
	style, err := h.styles.ApproveCostEstimation(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, style)
}

// ---- Export ----

type exportRequest struct {
	ExportAll             bool     `json:"export_all"`
	Statuses              []string `json:"status"`
	StyleIDs              []string `json:"style_ids"`
	IncludeBOM            *bool    `json:"include_bom"`
	IncludeRouting        *bool    `json:"include_routing"`
	IncludeCostEstimation *bool    `json:"include_cost_estimation"`
}

// ExportExcel GET|POST /styles/export/excel
//
// GET reads query params: export_all, status (comma separated),
// style_ids (comma separated), include_bom, include_routing,
// include_cost_estimation. POST accepts the same fields as a JSON body;
// with no body it falls back to the query params. The include flags
// default to true.
func (h *StyleHandler) ExportExcel(c *gin.Context) {
	filter := &service.ExportFilter{
		ExportAll:             c.Query("export_all") == "true",
		Statuses:              splitCSV(c.Query("status")),
		StyleIDs:              splitCSV(c.Query("style_ids")),
		IncludeBOM:            boolDefaultTrue(c.Query("include_bom")),
		IncludeRouting:        boolDefaultTrue(c.Query("include_routing")),
		IncludeCostEstimation: boolDefaultTrue(c.Query("include_cost_estimation")),
	}

	if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
		var req exportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		filter = &service.ExportFilter{
			ExportAll:             req.ExportAll,
			Statuses:              req.Statuses,
			StyleIDs:              req.StyleIDs,
			IncludeBOM:            boolPtrDefaultTrue(req.IncludeBOM),
			IncludeRouting:        boolPtrDefaultTrue(req.IncludeRouting),
			IncludeCostEstimation: boolPtrDefaultTrue(req.IncludeCostEstimation),
		}
	}

	f, filename, err := h.export.ExportStyles(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", url.PathEscape(filename)))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolDefaultTrue(s string) bool {
	return s != "false"
}

func boolPtrDefaultTrue(p *bool) bool {
	return p == nil || *p
}
