package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	apierrors "github.com/rmaeda/annotation-portal/internal/errors"
	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/services"
)

// CatalogHandler serves the image catalog the annotation UI walks
// through.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
	}
}

// Folders lists the catalog folder names.
func (h *CatalogHandler) Folders(c *gin.Context) {
	folders, err := h.catalog.ListFolders()
	if err != nil {
		apierrors.InternalError(c, "Failed to list folders")
		return
	}
	if folders == nil {
		folders = []string{}
	}
	c.JSON(http.StatusOK, folders)
}

// Items returns every (image, suggested label) pair, optionally
// restricted to one folder.
func (h *CatalogHandler) Items(c *gin.Context) {
	items, err := h.catalog.LoadAllData()
	if err != nil {
		apierrors.InternalError(c, "Failed to load catalog")
		return
	}

	if folder := c.Query("folder"); folder != "" {
		filtered := make([]models.CatalogItem, 0, len(items))
		for _, item := range items {
			if item.Folder == folder {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	c.JSON(http.StatusOK, items)
}

// Image serves the raw bytes of one catalog image.
func (h *CatalogHandler) Image(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		apierrors.BadRequest(c, "path is required")
		return
	}

	resolved, err := h.catalog.ResolveImagePath(path)
	if err != nil {
		if errors.Is(err, services.ErrImageOutsideCatalog) {
			apierrors.NotFound(c, "Image not found")
			return
		}
		apierrors.InternalError(c, "")
		return
	}
	if _, err := os.Stat(resolved); err != nil {
		apierrors.NotFound(c, "Image not found")
		return
	}
	c.File(resolved)
}
