package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/documents"
	"onboarding-backend/internal/employees"
	"onboarding-backend/internal/progress"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/employees/:id/profile", middleware.RequireHR(), h.profile)
	rg.GET("/me/progress", h.myProgress)
	rg.GET("/dashboard", h.dashboard)
	rg.GET("/reports/onboarding.xlsx", middleware.RequireHR(), h.export)
}

type profileResponse struct {
	Employee        employees.Employee                             `json:"employee"`
	Documents       []documents.DocumentResponse                   `json:"documents"`
	DocumentsByType map[doctypes.Type][]documents.DocumentResponse `json:"documentsByType"`
	DocumentSummary progress.Summary                               `json:"documentSummary"`
}

type employeeProgressResponse struct {
	EmployeeID string           `json:"employeeId"`
	Name       string           `json:"name"`
	Department string           `json:"department"`
	Summary    progress.Summary `json:"summary"`
}

func (h *Handler) profile(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	p, err := h.Svc.Compose(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	docs := documents.ToResponses(p.Documents)
	byType := make(map[doctypes.Type][]documents.DocumentResponse, len(p.ByType))
	for _, d := range docs {
		t := doctypes.Type(d.DocumentType)
		byType[t] = append(byType[t], d)
	}
	respond.OK(c, profileResponse{
		Employee:        p.Employee,
		Documents:       docs,
		DocumentsByType: byType,
		DocumentSummary: p.Summary,
	})
}

func (h *Handler) myProgress(c *gin.Context) {
	summary, err := h.Svc.MyProgress(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond.OK(c, summary)
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.Svc.Dashboard(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if d.Overview == nil {
		respond.OK(c, gin.H{"role": d.Role, "summary": d.Self})
		return
	}

	rows := make([]employeeProgressResponse, 0, len(d.Overview.Employees))
	for _, r := range d.Overview.Employees {
		rows = append(rows, employeeProgressResponse{
			EmployeeID: r.Employee.ID,
			Name:       r.Employee.Name,
			Department: r.Employee.Department,
			Summary:    r.Summary,
		})
	}
	respond.OK(c, gin.H{
		"role":               d.Role,
		"employeeCount":      d.Overview.EmployeeCount,
		"pendingReviewCount": d.Overview.PendingReviewCount,
		"completedCount":     d.Overview.CompletedCount,
		"averageProgress":    d.Overview.AverageProgress,
		"employees":          rows,
	})
}

func (h *Handler) export(c *gin.Context) {
	data, err := h.Svc.ExportXLSX(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond.Attachment(c, "onboarding.xlsx", xlsxContentType, data)
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, employees.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "employee not found", nil)
		return
	}
	documents.RespondError(c, err)
}
