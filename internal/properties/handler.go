package properties

import (
	"context"
	"net/http"

	"imobzap_backend/platform/httpkit"
	"imobzap_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Writer is the repository surface the handler needs.
type Writer interface {
	Store
	Upsert(ctx context.Context, p Property) (Property, error)
}

// Handler exposes the inventory management endpoints used by catalog
// synchronization jobs.
type Handler struct {
	repo Writer
	val  *validator.Validator
}

func NewHandler(repo Writer, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.PUT("", h.Upsert)
}

type upsertRequest struct {
	ID            string  `json:"id" validate:"omitempty,uuid"`
	TenantID      string  `json:"tenantId" validate:"required,uuid"`
	Title         string  `json:"title" validate:"required,min=3,max=200"`
	Description   string  `json:"description" validate:"max=5000"`
	Price         int64   `json:"price" validate:"required,gt=0"`
	BedroomCount  int     `json:"bedroomCount" validate:"gte=0,lte=20"`
	BathroomCount int     `json:"bathroomCount" validate:"gte=0,lte=20"`
	AreaTotal     float64 `json:"areaTotal" validate:"gte=0"`
	City          string  `json:"city" validate:"max=100"`
	Neighborhood  string  `json:"neighborhood" validate:"max=100"`
}

type propertyResponse struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenantId"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Price         int64   `json:"price"`
	BedroomCount  int     `json:"bedroomCount"`
	BathroomCount int     `json:"bathroomCount"`
	AreaTotal     float64 `json:"areaTotal"`
	City          string  `json:"city"`
	Neighborhood  string  `json:"neighborhood"`
	UpdatedAt     string  `json:"updatedAt"`
}

func toResponse(p Property) propertyResponse {
	return propertyResponse{
		ID:            p.ID.String(),
		TenantID:      p.TenantID.String(),
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		BedroomCount:  p.BedroomCount,
		BathroomCount: p.BathroomCount,
		AreaTotal:     p.AreaTotal,
		City:          p.City,
		Neighborhood:  p.Neighborhood,
		UpdatedAt:     p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List returns a tenant's inventory.
func (h *Handler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "tenantId query parameter must be a UUID")
		return
	}

	inventory, err := h.repo.ListByTenant(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]propertyResponse, 0, len(inventory))
	for _, p := range inventory {
		result = append(result, toResponse(p))
	}
	httpkit.OK(c, gin.H{"properties": result})
}

// Upsert creates or refreshes one catalog entry.
func (h *Handler) Upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	p := Property{
		TenantID:      uuid.MustParse(req.TenantID),
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		BedroomCount:  req.BedroomCount,
		BathroomCount: req.BathroomCount,
		AreaTotal:     req.AreaTotal,
		City:          req.City,
		Neighborhood:  req.Neighborhood,
	}
	if req.ID != "" {
		p.ID = uuid.MustParse(req.ID)
	}

	saved, err := h.repo.Upsert(c.Request.Context(), p)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(saved))
}
