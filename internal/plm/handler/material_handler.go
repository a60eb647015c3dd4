package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xuongmay/garment-plm/internal/plm/service"
)

type MaterialHandler struct {
	svc *service.MaterialService
}

func NewMaterialHandler(svc *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

// List GET /materials
func (h *MaterialHandler) List(c *gin.Context) {
	materials, err := h.svc.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": materials})
}

// Get GET /materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, material)
}

// Create POST /materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var in service.CreateMaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	material, err := h.svc.Create(c.Request.Context(), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, material)
}

// Update PATCH /materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	var in service.UpdateMaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	material, err := h.svc.Update(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, material)
}

// Delete DELETE /materials/:id
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
