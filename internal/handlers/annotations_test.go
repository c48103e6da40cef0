package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/services"
)

func submitAnnotation(t *testing.T, env testEnv, cookies []*http.Cookie, image string, correct bool, corrected string) models.AnnotationRecord {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/annotations", map[string]any{
		"image_path":      image,
		"folder":          "31",
		"filename":        "000.jpg",
		"suggested_label": "hello",
		"is_correct":      correct,
		"corrected_label": corrected,
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	var rec models.AnnotationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	return rec
}

func TestAnnotationHandler_Create(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	rec := submitAnnotation(t, env, cookies, "sorted_crops/31/000.jpg", true, "")
	require.Equal(t, "ANN_000001", rec.AnnotationID)
	require.Equal(t, "ann", rec.Annotator, "annotator comes from the session")
	require.NotEmpty(t, rec.Timestamp)
}

func TestAnnotationHandler_CreateRequiresCorrection(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	w := env.do(t, http.MethodPost, "/api/annotations", map[string]any{
		"image_path":      "sorted_crops/31/000.jpg",
		"folder":          "31",
		"filename":        "000.jpg",
		"suggested_label": "hello",
		"is_correct":      false,
	}, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnotationHandler_CreateRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/annotations", map[string]any{
		"image_path": "x.jpg", "folder": "31", "filename": "x.jpg", "is_correct": true,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnnotationHandler_MineAndProgress(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	env.register(t, "other", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	submitAnnotation(t, env, cookies, "sorted_crops/31/000.jpg", true, "")
	submitAnnotation(t, env, cookies, "sorted_crops/31/001.jpg", false, "world")

	otherCookies := env.login(t, "other", "Passw0rd")
	submitAnnotation(t, env, otherCookies, "sorted_crops/31/002.jpg", true, "")

	w := env.do(t, http.MethodGet, "/api/annotations/mine", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var mine []models.AnnotationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 2)

	w = env.do(t, http.MethodGet, "/api/annotations/progress", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var progress struct {
		Stats           services.UserStats `json:"stats"`
		AnnotatedImages []string           `json:"annotated_images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	require.Equal(t, 2, progress.Stats.Total)
	require.Equal(t, 1, progress.Stats.Correct)
	require.InDelta(t, 50.0, progress.Stats.CorrectPercentage, 0.01)
	require.Equal(t, []string{"sorted_crops/31/000.jpg", "sorted_crops/31/001.jpg"}, progress.AnnotatedImages)
}

func TestAnnotationHandler_Latest(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	w := env.do(t, http.MethodGet, "/api/annotations/latest?image_path=sorted_crops/31/000.jpg", nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	submitAnnotation(t, env, cookies, "sorted_crops/31/000.jpg", true, "")
	second := submitAnnotation(t, env, cookies, "sorted_crops/31/000.jpg", false, "goodbye")

	w = env.do(t, http.MethodGet, "/api/annotations/latest?image_path=sorted_crops/31/000.jpg", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var latest models.AnnotationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	require.Equal(t, second.AnnotationID, latest.AnnotationID)
	require.Equal(t, "goodbye", latest.CorrectedLabel)
}

func TestCatalogHandler_Items(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	env.writeCatalogFolder(t, "31", []string{"000.jpg", "001.jpg", "002.jpg"}, "hello\nwrold\n")

	w := env.do(t, http.MethodGet, "/api/catalog/items", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.CatalogItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 3)
	require.Equal(t, "hello", items[0].SuggestedLabel)
	require.Equal(t, "wrold", items[1].SuggestedLabel)
	require.Equal(t, "", items[2].SuggestedLabel)
}

func TestCatalogHandler_ImageRejectsTraversal(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "ann", "Passw0rd", models.RoleAnnotator)
	cookies := env.login(t, "ann", "Passw0rd")

	w := env.do(t, http.MethodGet, "/api/catalog/image?path=../../etc/passwd", nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)
}
