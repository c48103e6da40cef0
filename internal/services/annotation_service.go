package services

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/repository"
)

// Annotation history filter values.
const (
	StatusCorrect   = "correct"
	StatusIncorrect = "incorrect"
	StatusInvalid   = "invalid"
)

// UserStats summarizes one annotator's history.
type UserStats struct {
	Total             int     `json:"total"`
	Correct           int     `json:"correct"`
	Incorrect         int     `json:"incorrect"`
	CorrectPercentage float64 `json:"correct_percentage"`
}

// UserStatsRow is one row of the per-user statistics table.
type UserStatsRow struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	UserStats
}

// MultiAnnotatedImage groups every record of an image annotated more
// than once (by one user or several).
type MultiAnnotatedImage struct {
	ImagePath   string                    `json:"image_path"`
	Annotations []models.AnnotationRecord `json:"annotations"`
}

// FolderCorrectionRate reports how often a folder's suggested labels
// were rejected.
type FolderCorrectionRate struct {
	Folder         string  `json:"folder"`
	Corrections    int     `json:"corrections"`
	Total          int     `json:"total"`
	CorrectionRate float64 `json:"correction_rate"`
}

// CorrectionCount is one (suggested, corrected) pair with its frequency.
type CorrectionCount struct {
	SuggestedLabel string `json:"suggested_label"`
	CorrectedLabel string `json:"corrected_label"`
	Count          int    `json:"count"`
}

// AgreementReport measures inter-annotator agreement over images
// annotated by at least two distinct annotators.
type AgreementReport struct {
	MultiUserImages int     `json:"multi_user_images"`
	Agreements      int     `json:"agreements"`
	Disagreements   int     `json:"disagreements"`
	AgreementRate   float64 `json:"agreement_rate"`
}

// AnnotationService is the append-only annotation ledger plus every
// statistic derived from it. Statistics are recomputed on each call;
// nothing is cached or stored besides the records themselves.
type AnnotationService struct {
	ledger repository.AnnotationRepository
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewAnnotationService creates a new AnnotationService.
func NewAnnotationService(ledger repository.AnnotationRepository, users repository.UserRepository, logger zerolog.Logger) *AnnotationService {
	return &AnnotationService{
		ledger: ledger,
		users:  users,
		logger: logger,
	}
}

// Append durably records one annotation decision. Re-annotating the
// same image produces a new, independent record. A correct annotation
// never carries a correction.
func (s *AnnotationService) Append(input models.AnnotationInput) (*models.AnnotationRecord, error) {
	if input.IsCorrect {
		input.CorrectedLabel = ""
	}
	return s.ledger.Append(input)
}

// AllRecords returns the full history in insertion order. A corrupt or
// unreadable backing file degrades to an empty sequence; the corruption
// is reported through the log, never through the return value.
func (s *AnnotationService) AllRecords() []models.AnnotationRecord {
	records, err := s.ledger.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("annotation history unreadable, degrading to empty")
		return nil
	}
	return records
}

// RecordsFor returns the history of one annotator in insertion order.
func (s *AnnotationService) RecordsFor(username string) []models.AnnotationRecord {
	var out []models.AnnotationRecord
	for _, rec := range s.AllRecords() {
		if rec.Annotator == username {
			out = append(out, rec)
		}
	}
	return out
}

// AnnotatedImages returns the distinct image paths the user has ever
// annotated, sorted.
func (s *AnnotationService) AnnotatedImages(username string) []string {
	seen := map[string]bool{}
	for _, rec := range s.RecordsFor(username) {
		seen[rec.ImagePath] = true
	}
	images := make([]string, 0, len(seen))
	for path := range seen {
		images = append(images, path)
	}
	sort.Strings(images)
	return images
}

// LatestFor returns the most recent record for the (image, user) pair,
// or nil. Timestamp ties fall back to insertion order, since wall-clock
// resolution allows collisions.
func (s *AnnotationService) LatestFor(imagePath, username string) *models.AnnotationRecord {
	var latest *models.AnnotationRecord
	for _, rec := range s.AllRecords() {
		if rec.ImagePath != imagePath || rec.Annotator != username {
			continue
		}
		if latest == nil || rec.Timestamp >= latest.Timestamp {
			r := rec
			latest = &r
		}
	}
	return latest
}

func statsOver(records []models.AnnotationRecord) UserStats {
	stats := UserStats{Total: len(records)}
	for _, rec := range records {
		if rec.IsCorrect {
			stats.Correct++
		}
	}
	stats.Incorrect = stats.Total - stats.Correct
	if stats.Total > 0 {
		stats.CorrectPercentage = float64(stats.Correct) / float64(stats.Total) * 100
	}
	return stats
}

// UserStats computes the per-user summary. Zero records yields all
// zeroes, never a division by zero.
func (s *AnnotationService) UserStats(username string) UserStats {
	return statsOver(s.RecordsFor(username))
}

// AllUserStats returns one row per registered user, in registration
// order, with the role sourced from the user directory. The history is
// read once so every row is computed over the same snapshot.
func (s *AnnotationService) AllUserStats() []UserStatsRow {
	users, err := s.users.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("user list unreadable, degrading to empty")
		return nil
	}

	byAnnotator := map[string][]models.AnnotationRecord{}
	for _, rec := range s.AllRecords() {
		byAnnotator[rec.Annotator] = append(byAnnotator[rec.Annotator], rec)
	}

	rows := make([]UserStatsRow, 0, len(users))
	for _, user := range users {
		rows = append(rows, UserStatsRow{
			Username:  user.Username,
			Role:      user.Role,
			UserStats: statsOver(byAnnotator[user.Username]),
		})
	}
	return rows
}

// Filter returns records matching the given annotator, folder and
// status. Empty values match everything. Status is three-way: correct
// and incorrect both exclude invalid-sample records, which form their
// own category.
func (s *AnnotationService) Filter(annotator, folder, status string) []models.AnnotationRecord {
	var out []models.AnnotationRecord
	for _, rec := range s.AllRecords() {
		if annotator != "" && rec.Annotator != annotator {
			continue
		}
		if folder != "" && rec.Folder != folder {
			continue
		}
		switch status {
		case StatusCorrect:
			if !rec.IsCorrect || rec.IsInvalidSample() {
				continue
			}
		case StatusIncorrect:
			if rec.IsCorrect || rec.IsInvalidSample() {
				continue
			}
		case StatusInvalid:
			if !rec.IsInvalidSample() {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func (s *AnnotationService) groupByImage() (map[string][]models.AnnotationRecord, []string) {
	groups := map[string][]models.AnnotationRecord{}
	for _, rec := range s.AllRecords() {
		groups[rec.ImagePath] = append(groups[rec.ImagePath], rec)
	}
	paths := make([]string, 0, len(groups))
	for path := range groups {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return groups, paths
}

// MultiAnnotated returns every image with more than one record, sorted
// by image path.
func (s *AnnotationService) MultiAnnotated() []MultiAnnotatedImage {
	groups, paths := s.groupByImage()

	var out []MultiAnnotatedImage
	for _, path := range paths {
		if len(groups[path]) > 1 {
			out = append(out, MultiAnnotatedImage{
				ImagePath:   path,
				Annotations: groups[path],
			})
		}
	}
	return out
}

// FolderCorrectionRates computes per-folder correction percentages,
// highest first. Folders with many corrections usually indicate bad
// source labels.
func (s *AnnotationService) FolderCorrectionRates() []FolderCorrectionRate {
	totals := map[string]int{}
	corrections := map[string]int{}
	for _, rec := range s.AllRecords() {
		totals[rec.Folder]++
		if !rec.IsCorrect {
			corrections[rec.Folder]++
		}
	}

	out := make([]FolderCorrectionRate, 0, len(totals))
	for folder, total := range totals {
		out = append(out, FolderCorrectionRate{
			Folder:         folder,
			Corrections:    corrections[folder],
			Total:          total,
			CorrectionRate: float64(corrections[folder]) / float64(total) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CorrectionRate != out[j].CorrectionRate {
			return out[i].CorrectionRate > out[j].CorrectionRate
		}
		return out[i].Folder < out[j].Folder
	})
	return out
}

// CommonCorrections groups incorrect records by (suggested, corrected)
// pair, most frequent first. limit <= 0 returns everything.
func (s *AnnotationService) CommonCorrections(limit int) []CorrectionCount {
	type pair struct{ suggested, corrected string }
	counts := map[pair]int{}
	for _, rec := range s.AllRecords() {
		if rec.IsCorrect {
			continue
		}
		counts[pair{rec.SuggestedLabel, rec.CorrectedLabel}]++
	}

	out := make([]CorrectionCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, CorrectionCount{
			SuggestedLabel: p.suggested,
			CorrectedLabel: p.corrected,
			Count:          n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].SuggestedLabel != out[j].SuggestedLabel {
			return out[i].SuggestedLabel < out[j].SuggestedLabel
		}
		return out[i].CorrectedLabel < out[j].CorrectedLabel
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Agreement compares each annotator's latest effective label on images
// annotated by at least two distinct annotators. An image counts as an
// agreement iff all of them settled on the same label.
func (s *AnnotationService) Agreement() AgreementReport {
	groups, paths := s.groupByImage()

	var report AgreementReport
	for _, path := range paths {
		latestByAnnotator := map[string]models.AnnotationRecord{}
		for _, rec := range groups[path] {
			prev, ok := latestByAnnotator[rec.Annotator]
			if !ok || rec.Timestamp >= prev.Timestamp {
				latestByAnnotator[rec.Annotator] = rec
			}
		}
		if len(latestByAnnotator) < 2 {
			continue
		}

		report.MultiUserImages++
		labels := map[string]bool{}
		for _, rec := range latestByAnnotator {
			labels[rec.EffectiveLabel()] = true
		}
		if len(labels) == 1 {
			report.Agreements++
		} else {
			report.Disagreements++
		}
	}

	if total := report.Agreements + report.Disagreements; total > 0 {
		report.AgreementRate = float64(report.Agreements) / float64(total) * 100
	}
	return report
}
