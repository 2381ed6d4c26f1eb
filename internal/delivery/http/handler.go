package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trilu/lupito-catalog/internal/domain"
	"github.com/trilu/lupito-catalog/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	importService *usecase.ImportService
}

// NewHandler creates a new HTTP handler
func NewHandler(importService *usecase.ImportService) *Handler {
	return &Handler{importService: importService}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "lupito-catalog",
		"version": "1.0.0",
	})
}

// resolveResponse wraps a single resolution result
type resolveResponse struct {
	Decision *domain.ResolutionDecision `json:"decision"`
	Warning  *domain.AmbiguityWarning   `json:"warning,omitempty"`
}

// ResolveCandidate resolves one raw candidate against the catalog without
// persisting anything (dry run).
func (h *Handler) ResolveCandidate(c *gin.Context) {
	var candidate domain.RawCandidateRecord
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	decision, warning, err := h.importService.ResolveOne(c.Request.Context(), candidate)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolveResponse{Decision: decision, Warning: warning})
}

// batchRequest is the POST /import/batch body
type batchRequest struct {
	Candidates []domain.RawCandidateRecord `json:"candidates" binding:"required"`
}

// batchResponse reports everything a batch did; partial success is never silent
type batchResponse struct {
	Summary   *domain.BatchSummary        `json:"summary"`
	Decisions []domain.ResolutionDecision `json:"decisions"`
	Error     string                      `json:"error,omitempty"`
}

// ImportBatch resolves a batch of candidates and applies the resulting
// merges and inserts.
func (h *Handler) ImportBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Candidates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidates must not be empty"})
		return
	}

	decisions, summary, err := h.importService.RunBatch(c.Request.Context(), req.Candidates)
	if err != nil {
		if summary != nil {
			// The batch failed midway; report what happened along with the error
			c.JSON(statusForError(err), batchResponse{
				Summary:   summary,
				Decisions: decisions,
				Error:     err.Error(),
			})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, batchResponse{Summary: summary, Decisions: decisions})
}

// CatalogStats reports the current snapshot's shape.
func (h *Handler) CatalogStats(c *gin.Context) {
	idx, err := h.importService.Snapshot(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": idx.Size(),
		"brands":   idx.BrandCount(),
		"builtAt":  idx.BuiltAt(),
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCandidate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBatchAborted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
