package employees

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	hr := rg.Group("/employees", middleware.RequireHR())
	hr.GET("", h.list)
	hr.PUT("/:id", h.upsert)
	hr.DELETE("/:id", h.remove)
}

type upsertRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Role        string `json:"role"`
	JoinedAt    string `json:"joinedAt"`
}

func (h *Handler) me(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	emp, err := h.Svc.GetByID(c.Request.Context(), caller.EmployeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Tokens may name employees the directory has not been told about yet.
			respond.OK(c, gin.H{"id": caller.EmployeeID, "role": caller.Role})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load employee", nil)
		return
	}
	respond.OK(c, emp)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list employees", nil)
		return
	}
	if list == nil {
		list = []Employee{}
	}
	respond.OK(c, gin.H{"items": list})
}

func (h *Handler) upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	emp := Employee{
		ID:          c.Param("id"),
		Name:        req.Name,
		Email:       req.Email,
		Department:  req.Department,
		Designation: req.Designation,
		Role:        identity.Role(req.Role),
	}
	if req.JoinedAt != "" {
		joined, err := time.Parse(time.DateOnly, req.JoinedAt)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "joinedAt must be YYYY-MM-DD", nil)
			return
		}
		emp.JoinedAt = &joined
	}
	saved, err := h.Svc.Upsert(c.Request.Context(), emp)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save employee", nil)
		return
	}
	respond.OK(c, saved)
}

func (h *Handler) remove(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	err := h.Svc.Delete(c.Request.Context(), caller, c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "employee not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "hr role required", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete employee", nil)
	}
}
