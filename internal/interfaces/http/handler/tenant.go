package handler

import (
	identityapp "github.com/timebill/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantHandler handles tenant provisioning and administration endpoints
type TenantHandler struct {
	BaseHandler
	tenantService *identityapp.TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenantService *identityapp.TenantService) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
	}
}

// CreateTenantRequest is the request to provision a tenant
// @Description Request to provision a tenant with its initial admin account
type CreateTenantRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=128" example:"Acme Consulting"`
	Slug          string `json:"slug" binding:"required,min=3,max=64" example:"acme"`
	AdminEmail    string `json:"admin_email" binding:"required,email" example:"owner@acme.com"`
	AdminName     string `json:"admin_name" binding:"required,min=1,max=128" example:"Pat Owner"`
	AdminPassword string `json:"admin_password" binding:"required,min=8,max=128" example:"s3cret-pass"`
}

// TenantResponse is a tenant record on the wire
// @Description Tenant details
type TenantResponse struct {
	ID     string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name   string `json:"name" example:"Acme Consulting"`
	Slug   string `json:"slug" example:"acme"`
	Status string `json:"status" example:"active"`
}

// CreateTenantResponse is the result of provisioning a tenant
// @Description Provisioned tenant and its initial admin
type CreateTenantResponse struct {
	TenantID string               `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Slug     string               `json:"slug" example:"acme"`
	Admin    identityapp.UserInfo `json:"admin"`
}

// Create godoc
// @Summary      Provision a tenant
// @Description  Creates a tenant and its initial admin account
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body CreateTenantRequest true "Tenant to provision"
// @Success      201 {object} dto.Response{data=CreateTenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.tenantService.CreateTenant(c.Request.Context(), identityapp.CreateTenantInput{
		Name:          req.Name,
		Slug:          req.Slug,
		AdminEmail:    req.AdminEmail,
		AdminName:     req.AdminName,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, CreateTenantResponse{
		TenantID: result.TenantID.String(),
		Slug:     result.Slug,
		Admin:    result.Admin,
	})
}

// GetCurrent godoc
// @Summary      Get the caller's tenant
// @Description  Returns the tenant the authenticated user belongs to
// @Tags         tenants
// @Produce      json
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants/current [get]
func (h *TenantHandler) GetCurrent(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	tenant, err := h.tenantService.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TenantResponse{
		ID:     tenant.ID.String(),
		Name:   tenant.Name,
		Slug:   tenant.Slug,
		Status: string(tenant.Status),
	})
}

// Suspend godoc
// @Summary      Suspend a tenant
// @Description  Suspends the tenant; its users can no longer log in or refresh tokens
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID"
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants/{id}/suspend [post]
func (h *TenantHandler) Suspend(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.tenantService.SuspendTenant(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
