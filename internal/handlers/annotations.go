package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/rmaeda/annotation-portal/internal/errors"
	"github.com/rmaeda/annotation-portal/internal/middleware"
	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/services"
)

// AnnotationHandler serves the annotator-facing annotation endpoints.
type AnnotationHandler struct {
	annotations *services.AnnotationService
}

// NewAnnotationHandler creates a new AnnotationHandler.
func NewAnnotationHandler(annotations *services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{
		annotations: annotations,
	}
}

// CreateAnnotationRequest is the submission payload. The annotator is
// always the session user, never client-supplied.
type CreateAnnotationRequest struct {
	ImagePath      string `json:"image_path" binding:"required"`
	Folder         string `json:"folder" binding:"required"`
	Filename       string `json:"filename" binding:"required"`
	SuggestedLabel string `json:"suggested_label"`
	IsCorrect      *bool  `json:"is_correct" binding:"required"`
	CorrectedLabel string `json:"corrected_label"`
}

// Create appends one annotation decision to the history.
func (h *AnnotationHandler) Create(c *gin.Context) {
	username, ok := middleware.GetUsername(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if !*req.IsCorrect && req.CorrectedLabel == "" {
		apierrors.BadRequest(c, "corrected_label is required when the label is marked incorrect")
		return
	}

	rec, err := h.annotations.Append(models.AnnotationInput{
		ImagePath:      req.ImagePath,
		Folder:         req.Folder,
		Filename:       req.Filename,
		SuggestedLabel: req.SuggestedLabel,
		IsCorrect:      *req.IsCorrect,
		CorrectedLabel: req.CorrectedLabel,
		Annotator:      username,
	})
	if err != nil {
		apierrors.InternalError(c, "Failed to save annotation")
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// Mine returns the session user's full annotation history.
func (h *AnnotationHandler) Mine(c *gin.Context) {
	username, ok := middleware.GetUsername(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	records := h.annotations.RecordsFor(username)
	if records == nil {
		records = []models.AnnotationRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Latest returns the session user's most recent annotation of an image.
func (h *AnnotationHandler) Latest(c *gin.Context) {
	username, ok := middleware.GetUsername(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	imagePath := c.Query("image_path")
	if imagePath == "" {
		apierrors.BadRequest(c, "image_path is required")
		return
	}

	rec := h.annotations.LatestFor(imagePath, username)
	if rec == nil {
		apierrors.NotFound(c, "No annotation for this image")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Progress returns the session user's statistics and the set of images
// they have already annotated.
func (h *AnnotationHandler) Progress(c *gin.Context) {
	username, ok := middleware.GetUsername(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	annotated := h.annotations.AnnotatedImages(username)
	if annotated == nil {
		annotated = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":            h.annotations.UserStats(username),
		"annotated_images": annotated,
	})
}
