package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rmaeda/annotation-portal/internal/config"
	"github.com/rmaeda/annotation-portal/internal/constants"
	"github.com/rmaeda/annotation-portal/internal/middleware"
	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/repository"
	"github.com/rmaeda/annotation-portal/internal/services"
)

const testAdminKey = "test-admin-key"

type testEnv struct {
	router      *gin.Engine
	users       *services.UserService
	annotations *services.AnnotationService
	dataDir     string
	cropsDir    string
	truthDir    string
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	dataDir := filepath.Join(base, "annotations")
	cropsDir := filepath.Join(base, "sorted_crops")
	truthDir := filepath.Join(base, "ground_truth")

	userRepo, err := repository.NewFileUserRepository(dataDir)
	require.NoError(t, err)
	ledger, err := repository.NewFileAnnotationRepository(dataDir)
	require.NoError(t, err)

	policy := config.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireDigit: true}
	userService := services.NewUserService(userRepo, policy, testAdminKey)
	annotationService := services.NewAnnotationService(ledger, userRepo, zerolog.Nop())
	catalogService := services.NewCatalogService(cropsDir, truthDir)

	authHandler := NewAuthHandler(userService)
	annotationHandler := NewAnnotationHandler(annotationService)
	catalogHandler := NewCatalogHandler(catalogService)
	adminHandler := NewAdminHandler(userService, annotationService, catalogService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	api := r.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.RequireAuth(), authHandler.Me)

	catalog := api.Group("/catalog")
	catalog.Use(middleware.RequireAuth())
	catalog.GET("/folders", catalogHandler.Folders)
	catalog.GET("/items", catalogHandler.Items)
	catalog.GET("/image", catalogHandler.Image)

	annotations := api.Group("/annotations")
	annotations.Use(middleware.RequireAuth())
	annotations.POST("", annotationHandler.Create)
	annotations.GET("/mine", annotationHandler.Mine)
	annotations.GET("/latest", annotationHandler.Latest)
	annotations.GET("/progress", annotationHandler.Progress)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireAdmin(userService))
	admin.GET("/overview", adminHandler.Overview)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateUser)
	admin.PATCH("/users/:username/active", adminHandler.SetUserActive)
	admin.POST("/users/:username/password", adminHandler.ResetUserPassword)
	admin.DELETE("/users/:username", adminHandler.DeleteUser)
	admin.GET("/stats/users", adminHandler.UserStats)
	admin.GET("/annotations", adminHandler.Annotations)
	admin.GET("/export", adminHandler.Export)
	admin.GET("/quality/multi-annotated", adminHandler.QualityMultiAnnotated)
	admin.GET("/quality/folder-correction-rates", adminHandler.QualityFolderCorrectionRates)
	admin.GET("/quality/common-corrections", adminHandler.QualityCommonCorrections)
	admin.GET("/quality/agreement", adminHandler.QualityAgreement)
	admin.GET("/catalog/integrity", adminHandler.CatalogIntegrity)

	return testEnv{
		router:      r,
		users:       userService,
		annotations: annotationService,
		dataDir:     dataDir,
		cropsDir:    cropsDir,
		truthDir:    truthDir,
	}
}

func (env testEnv) do(t *testing.T, method, path string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env testEnv) register(t *testing.T, username, password string, role models.Role) {
	t.Helper()
	_, err := env.users.Register(services.RegisterInput{
		Username: username,
		Password: password,
		Role:     role,
		AdminKey: testAdminKey,
	})
	require.NoError(t, err)
}

func (env testEnv) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
	return cookies
}

func (env testEnv) writeCatalogFolder(t *testing.T, folder string, images []string, labels string) {
	t.Helper()
	dir := filepath.Join(env.cropsDir, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range images {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("fake"), 0o644))
	}
	require.NoError(t, os.MkdirAll(env.truthDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.truthDir, folder+".txt"), []byte(labels), 0o644))
}
