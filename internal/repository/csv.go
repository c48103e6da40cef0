package repository

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rmaeda/annotation-portal/internal/models"
)

// CSVHeader is the fixed column order of history.csv and of every
// tabular export. Changing it breaks the export contract.
var CSVHeader = []string{
	"annotation_id", "image_path", "folder", "filename",
	"suggested_label", "is_correct", "corrected_label",
	"annotator", "timestamp",
}

func csvRow(r models.AnnotationRecord) []string {
	return []string{
		r.AnnotationID,
		r.ImagePath,
		r.Folder,
		r.Filename,
		r.SuggestedLabel,
		strconv.FormatBool(r.IsCorrect),
		r.CorrectedLabel,
		r.Annotator,
		r.Timestamp,
	}
}

// WriteRecordsCSV writes a header plus one row per record. It is the
// single serializer behind both the persisted history.csv and the
// export endpoints.
func WriteRecordsCSV(w io.Writer, records []models.AnnotationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
