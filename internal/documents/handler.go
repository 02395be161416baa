package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/decision", middleware.RequireHR(), h.decide)
	rg.GET("/review-queue", middleware.RequireHR(), h.reviewQueue)
}

func (h *Handler) upload(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxUpload()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file is too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", gin.H{"reason": ReasonEmptyFile})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	res, err := h.Svc.Upload(c.Request.Context(), caller, UploadRequest{
		EmployeeID:   c.PostForm("employeeId"),
		DocumentType: c.PostForm("documentType"),
		FileName:     fileHeader.Filename,
		Body:         file,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Set(middleware.DocumentIDKey, res.DocumentID)
	c.Set(middleware.StatusTransitionKey, "->"+string(StatusPendingExtraction))
	respond.JSON(c, http.StatusAccepted, UploadResponse{
		DocumentID:   res.DocumentID,
		DocumentType: string(res.DocumentType),
		Status:       res.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	views, err := h.Svc.List(c.Request.Context(), caller, c.Query("employeeId"), limit, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.List(c, ToResponses(views), clampLimit(limit), offset)
}

func (h *Handler) get(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	view, err := h.Svc.Get(c.Request.Context(), caller, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, ToResponse(view))
}

func (h *Handler) decide(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}

	view, err := h.Svc.Decide(c.Request.Context(), caller, id, DecisionRequest{
		Decision: req.Decision,
		Notes:    req.Notes,
		Override: req.Override,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Set(middleware.StatusTransitionKey, string(StatusPendingReview)+"->"+string(view.Status))
	respond.OK(c, ToResponse(view))
}

func (h *Handler) reviewQueue(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	views, err := h.Svc.ListPendingReview(c.Request.Context(), caller, limit, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	items := make([]DocumentResponse, 0, len(views))
	for _, v := range views {
		items = append(items, ToResponse(v))
	}
	respond.List(c, items, clampLimit(limit), offset)
}

func pageParams(c *gin.Context) (int, int, bool) {
	limit, offset := 0, 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return 0, 0, false
		}
		limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be a non-negative integer", nil)
			return 0, 0, false
		}
		offset = v
	}
	return limit, offset, true
}

// RespondError maps engine errors onto the HTTP error envelope.
func RespondError(c *gin.Context, err error) {
	var verr *ValidationError
	var terr *TransitionError
	switch {
	case errors.As(err, &verr):
		switch verr.Reason {
		case ReasonPayloadTooLarge:
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", verr.Error(), gin.H{"reason": verr.Reason})
		case ReasonUnsupportedMediaType:
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", verr.Error(), gin.H{"reason": verr.Reason})
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", verr.Error(), gin.H{"reason": verr.Reason})
		}
	case errors.As(err, &terr):
		details := gin.H{"from": terr.From, "to": terr.To, "reason": terr.Reason}
		if len(terr.Missing) > 0 {
			details["missingFields"] = terr.Missing
		}
		respond.Error(c, http.StatusConflict, "transition_error", terr.Error(), details)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file is too large", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}
