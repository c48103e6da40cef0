package models

// InvalidSampleLabel is the sentinel correction meaning "this crop is
// unusable" (cut off, blurred, not a word). It is stored in
// corrected_label and treated as its own category, distinct from an
// ordinary correction.
const InvalidSampleLabel = "INVALID_SAMPLE"

// AnnotationRecord is one immutable entry of the annotation history.
// Records are only ever appended; a re-annotation of the same image by
// the same user produces a new record. The JSON tags define both the
// history.json layout and the API representation.
type AnnotationRecord struct {
	AnnotationID   string `json:"annotation_id"`
	ImagePath      string `json:"image_path"`
	Folder         string `json:"folder"`
	Filename       string `json:"filename"`
	SuggestedLabel string `json:"suggested_label"`
	IsCorrect      bool   `json:"is_correct"`
	CorrectedLabel string `json:"corrected_label"`
	Annotator      string `json:"annotator"`
	Timestamp      string `json:"timestamp"`
}

// AnnotationInput carries the caller-supplied fields of a record.
// AnnotationID and Timestamp are assigned by the ledger at write time.
type AnnotationInput struct {
	ImagePath      string
	Folder         string
	Filename       string
	SuggestedLabel string
	IsCorrect      bool
	CorrectedLabel string
	Annotator      string
}

// EffectiveLabel is the label the annotator ultimately stands behind:
// the suggested label when marked correct, the correction otherwise.
func (r AnnotationRecord) EffectiveLabel() string {
	if r.IsCorrect {
		return r.SuggestedLabel
	}
	return r.CorrectedLabel
}

// IsInvalidSample reports whether the record flags the crop as unusable.
func (r AnnotationRecord) IsInvalidSample() bool {
	return r.CorrectedLabel == InvalidSampleLabel
}
