package services

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmaeda/annotation-portal/internal/models"
)

// ErrImageOutsideCatalog is returned for image paths that resolve
// outside the crops directory.
var ErrImageOutsideCatalog = errors.New("image path is outside the catalog")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// CatalogService supplies the ordered (image, suggested label) pairs the
// annotation UI walks through. Images live in subfolders of the crops
// directory; each folder's labels are the lines of a matching text file
// in the ground-truth directory. The pairing is strictly positional.
type CatalogService struct {
	cropsDir       string
	groundTruthDir string
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(cropsDir, groundTruthDir string) *CatalogService {
	return &CatalogService{
		cropsDir:       cropsDir,
		groundTruthDir: groundTruthDir,
	}
}

// ListFolders returns the sorted subfolder names of the crops
// directory. A missing directory yields an empty list.
func (s *CatalogService) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(s.cropsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read crops dir: %w", err)
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// LabelsFor returns the folder's labels, one per line of its ground
// truth file. Blank lines are preserved positionally; a missing file
// yields an empty list.
func (s *CatalogService) LabelsFor(folder string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.groundTruthDir, folder+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ground truth for %s: %w", folder, err)
	}

	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

// ImagesIn returns the folder's image paths, stably sorted by filename.
func (s *CatalogService) ImagesIn(folder string) ([]string, error) {
	dir := filepath.Join(s.cropsDir, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// LoadAllData pairs every image with its suggested label by position.
// When a folder's label list is shorter than its image list, the
// unmatched tail gets empty suggested labels, never an error.
func (s *CatalogService) LoadAllData() ([]models.CatalogItem, error) {
	folders, err := s.ListFolders()
	if err != nil {
		return nil, err
	}

	var items []models.CatalogItem
	for _, folder := range folders {
		images, err := s.ImagesIn(folder)
		if err != nil {
			return nil, err
		}
		labels, err := s.LabelsFor(folder)
		if err != nil {
			return nil, err
		}

		for idx, imagePath := range images {
			label := ""
			if idx < len(labels) {
				label = labels[idx]
			}
			items = append(items, models.CatalogItem{
				ImagePath:      imagePath,
				Folder:         folder,
				Filename:       filepath.Base(imagePath),
				SuggestedLabel: label,
				Index:          idx,
			})
		}
	}
	return items, nil
}

// ResolveImagePath validates that the path stays inside the crops
// directory and returns it cleaned. Guards the image endpoint against
// path traversal.
func (s *CatalogService) ResolveImagePath(path string) (string, error) {
	cropsAbs, err := filepath.Abs(s.cropsDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, cropsAbs+string(filepath.Separator)) {
		return "", ErrImageOutsideCatalog
	}
	return abs, nil
}

// LoadImage decodes the image at the given catalog path.
func (s *CatalogService) LoadImage(path string) (image.Image, error) {
	resolved, err := s.ResolveImagePath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// FolderStats reports per-folder image and label counts and whether
// they match, for the data integrity check.
func (s *CatalogService) FolderStats() ([]models.FolderStats, error) {
	folders, err := s.ListFolders()
	if err != nil {
		return nil, err
	}

	stats := make([]models.FolderStats, 0, len(folders))
	for _, folder := range folders {
		images, err := s.ImagesIn(folder)
		if err != nil {
			return nil, err
		}
		labels, err := s.LabelsFor(folder)
		if err != nil {
			return nil, err
		}
		stats = append(stats, models.FolderStats{
			Folder:     folder,
			ImageCount: len(images),
			LabelCount: len(labels),
			Match:      len(images) == len(labels),
		})
	}
	return stats, nil
}
