package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rmaeda/annotation-portal/internal/constants"
	"github.com/rmaeda/annotation-portal/internal/models"
)

// FileAnnotationRepository persists the ledger in two synchronized
// forms. history.json, a whole-file array, is authoritative for reads;
// history.csv carries the same records in a fixed column order for
// spreadsheet-style use. Both are written by Append only, so they can
// never drift apart through independent write paths.
type FileAnnotationRepository struct {
	jsonPath string
	csvPath  string
	mu       sync.RWMutex
}

// NewFileAnnotationRepository creates the annotations directory and
// initializes empty history files when missing.
func NewFileAnnotationRepository(dir string) (*FileAnnotationRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create annotations dir: %w", err)
	}
	r := &FileAnnotationRepository{
		jsonPath: filepath.Join(dir, "history.json"),
		csvPath:  filepath.Join(dir, "history.csv"),
	}

	if _, err := os.Stat(r.jsonPath); os.IsNotExist(err) {
		if err := r.saveJSON(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if _, err := os.Stat(r.csvPath); os.IsNotExist(err) {
		f, err := os.Create(r.csvPath)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", r.csvPath, err)
		}
		cw := csv.NewWriter(f)
		if err := cw.Write(CSVHeader); err != nil {
			f.Close()
			return nil, err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *FileAnnotationRepository) load() ([]models.AnnotationRecord, error) {
	data, err := os.ReadFile(r.jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.jsonPath, err)
	}
	var records []models.AnnotationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.jsonPath, err)
	}
	return records, nil
}

func (r *FileAnnotationRepository) saveJSON(records []models.AnnotationRecord) error {
	if records == nil {
		records = []models.AnnotationRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(r.jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.jsonPath, err)
	}
	return nil
}

func (r *FileAnnotationRepository) appendCSV(rec models.AnnotationRecord) error {
	f, err := os.OpenFile(r.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.csvPath, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvRow(rec)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Append assigns the next sequential id and the current timestamp, then
// durably appends the record to both persisted forms. If the existing
// history cannot be parsed the append fails loudly instead of
// overwriting a corrupt but possibly recoverable file.
func (r *FileAnnotationRepository) Append(input models.AnnotationInput) (*models.AnnotationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	rec := models.AnnotationRecord{
		AnnotationID:   fmt.Sprintf("%s%06d", constants.AnnotationIDPrefix, len(records)+1),
		ImagePath:      input.ImagePath,
		Folder:         input.Folder,
		Filename:       input.Filename,
		SuggestedLabel: input.SuggestedLabel,
		IsCorrect:      input.IsCorrect,
		CorrectedLabel: input.CorrectedLabel,
		Annotator:      input.Annotator,
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	// CSV first: if a write fails partway the authoritative JSON is
	// untouched, so the error return matches what is durable.
	if err := r.appendCSV(rec); err != nil {
		return nil, err
	}
	if err := r.saveJSON(append(records, rec)); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record in insertion order.
func (r *FileAnnotationRepository) List() ([]models.AnnotationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load()
}
