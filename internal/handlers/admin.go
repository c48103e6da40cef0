package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmaeda/annotation-portal/internal/dto"
	apierrors "github.com/rmaeda/annotation-portal/internal/errors"
	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/repository"
	"github.com/rmaeda/annotation-portal/internal/services"
)

// AdminHandler serves the admin dashboard: user management, statistics,
// exports and quality review.
type AdminHandler struct {
	users       *services.UserService
	annotations *services.AnnotationService
	catalog     *services.CatalogService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users *services.UserService, annotations *services.AnnotationService, catalog *services.CatalogService) *AdminHandler {
	return &AdminHandler{
		users:       users,
		annotations: annotations,
		catalog:     catalog,
	}
}

// Overview returns the system-wide summary shown on the dashboard.
func (h *AdminHandler) Overview(c *gin.Context) {
	items, err := h.catalog.LoadAllData()
	if err != nil {
		apierrors.InternalError(c, "Failed to load catalog")
		return
	}
	users, err := h.users.List()
	if err != nil {
		apierrors.InternalError(c, "Failed to load users")
		return
	}

	records := h.annotations.AllRecords()
	unique := map[string]bool{}
	for _, rec := range records {
		unique[rec.ImagePath] = true
	}

	folderStats, err := h.catalog.FolderStats()
	if err != nil {
		apierrors.InternalError(c, "Failed to load folder stats")
		return
	}
	if folderStats == nil {
		folderStats = []models.FolderStats{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_images":            len(items),
		"total_users":             len(users),
		"total_annotations":       len(records),
		"unique_images_annotated": len(unique),
		"folder_stats":            folderStats,
	})
}

// ListUsers returns every account in registration order.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List()
	if err != nil {
		apierrors.InternalError(c, "Failed to load users")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// CreateUser registers an account on behalf of an admin. The admin key
// is still required for admin-role accounts, matching self-registration.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.users.Register(services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		AdminKey: req.AdminKey,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// SetUserActive enables or disables an account.
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	type request struct {
		Active *bool `json:"active" binding:"required"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ok, err := h.users.SetActive(c.Param("username"), *req.Active)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !ok {
		apierrors.NotFound(c, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *req.Active})
}

// ResetUserPassword sets a new password for the account.
func (h *AdminHandler) ResetUserPassword(c *gin.Context) {
	type request struct {
		Password string `json:"password" binding:"required"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.users.UpdatePassword(c.Param("username"), req.Password); err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeleteUser removes the account; its annotation history is kept.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ok, err := h.users.Delete(c.Param("username"))
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !ok {
		apierrors.NotFound(c, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted, annotations kept"})
}

// UserStats returns one statistics row per registered user.
func (h *AdminHandler) UserStats(c *gin.Context) {
	rows := h.annotations.AllUserStats()
	if rows == nil {
		rows = []services.UserStatsRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// Annotations returns the history filtered by annotator, folder and
// three-way status (correct, incorrect, invalid).
func (h *AdminHandler) Annotations(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", services.StatusCorrect, services.StatusIncorrect, services.StatusInvalid:
	default:
		apierrors.BadRequest(c, "status must be correct, incorrect or invalid")
		return
	}

	records := h.annotations.Filter(c.Query("annotator"), c.Query("folder"), status)
	if records == nil {
		records = []models.AnnotationRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Export streams the history (optionally one annotator's) as CSV or
// JSON, carrying exactly the record fields in the persisted order.
func (h *AdminHandler) Export(c *gin.Context) {
	annotator := c.Query("annotator")
	records := h.annotations.Filter(annotator, "", "")
	if records == nil {
		records = []models.AnnotationRecord{}
	}

	name := "all_annotations"
	if annotator != "" {
		name = annotator + "_annotations"
	}

	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
		if err := repository.WriteRecordsCSV(c.Writer, records); err != nil {
			apierrors.InternalError(c, "Failed to write export")
		}
	case "json":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", name))
		c.IndentedJSON(http.StatusOK, records)
	default:
		apierrors.BadRequest(c, "format must be csv or json")
	}
}

// QualityMultiAnnotated lists images annotated more than once.
func (h *AdminHandler) QualityMultiAnnotated(c *gin.Context) {
	images := h.annotations.MultiAnnotated()
	if images == nil {
		images = []services.MultiAnnotatedImage{}
	}
	c.JSON(http.StatusOK, images)
}

// QualityFolderCorrectionRates reports per-folder correction rates.
func (h *AdminHandler) QualityFolderCorrectionRates(c *gin.Context) {
	rates := h.annotations.FolderCorrectionRates()
	if rates == nil {
		rates = []services.FolderCorrectionRate{}
	}
	c.JSON(http.StatusOK, rates)
}

// QualityCommonCorrections reports the 20 most frequent corrections.
func (h *AdminHandler) QualityCommonCorrections(c *gin.Context) {
	corrections := h.annotations.CommonCorrections(20)
	if corrections == nil {
		corrections = []services.CorrectionCount{}
	}
	c.JSON(http.StatusOK, corrections)
}

// QualityAgreement reports inter-annotator agreement.
func (h *AdminHandler) QualityAgreement(c *gin.Context) {
	c.JSON(http.StatusOK, h.annotations.Agreement())
}

// CatalogIntegrity reports per-folder image/label count matches.
func (h *AdminHandler) CatalogIntegrity(c *gin.Context) {
	stats, err := h.catalog.FolderStats()
	if err != nil {
		apierrors.InternalError(c, "Failed to load folder stats")
		return
	}
	if stats == nil {
		stats = []models.FolderStats{}
	}

	ok := true
	for _, s := range stats {
		if !s.Match {
			ok = false
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      ok,
		"folders": stats,
	})
}
