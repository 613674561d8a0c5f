package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/middleware"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/internal/summary"
	"github.com/stockyard-ci/stockyard/internal/testutil"
	"github.com/stockyard-ci/stockyard/internal/views"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testAdminPassword = "letmein"
	testIntakeToken   = "ci-shared-secret"
)

// testServer wires every handler over an in-memory database and cache.
type testServer struct {
	router  *gin.Engine
	repos   *services.RepositoryService
	reports *services.Reports
	store   cache.Store

	mu     sync.Mutex
	events []*services.BuildEvent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.OpenDB(t)
	store := cache.NewMemory()

	cfg := config.DefaultConfig()
	cfg.Admin.Password = testAdminPassword
	cfg.Admin.JWTSecret = "handlers-test"
	cfg.Notification.IntakeToken = testIntakeToken

	ts := &testServer{
		repos:   services.NewRepositoryService(db),
		reports: services.NewReports(db),
		store:   store,
	}
	queue := services.NewSyncQueue(func(_ context.Context, e *services.BuildEvent) error {
		ts.mu.Lock()
		ts.events = append(ts.events, e)
		ts.mu.Unlock()
		return nil
	})
	t.Cleanup(func() { _ = queue.Close() })

	tmpl, err := views.Load(summary.DefaultCoverageThresholds)
	if err != nil {
		t.Fatalf("views.Load() error = %v", err)
	}

	owners := NewOwnerDirectory(store, ts.repos)
	auth := services.NewAdminAuthService(&cfg.Admin, &cfg.LDAP, store)
	retention := services.NewRetentionService(db, cfg.Retention)

	upload := NewUploadHandler(ts.repos, ts.reports, owners, cfg.Dashboard.DefaultBranch)
	latest := NewLatestHandler(ts.repos, ts.reports, owners)
	pages := NewViewHandler(ts.repos, ts.reports, owners, summary.DefaultCoverageThresholds, cfg.Dashboard.DefaultBranch)
	admin := NewAdminHandler(auth, ts.repos, owners, retention)
	channels := NewNotificationChannelHandler(services.NewNotificationChannelService(db))
	notify := NewNotificationHandler(queue)
	health := NewHealthHandler(db, queue, store)
	metrics := NewMetricsHandler(db, queue, store)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.GET("/health", health.CheckHealth)
	r.GET("/metrics", metrics.Metrics)

	api := r.Group("/api")
	api.POST("/upload/cloc", upload.LinesOfCode)
	api.POST("/upload/linesofcode", upload.LinesOfCode)
	api.POST("/upload/codecoverage", upload.CodeCoverage)
	api.POST("/upload/unittest", upload.UnitTests)
	api.POST("/upload/imagecapture", upload.ImageCaptures)
	api.POST("/upload/imagecapturediff", upload.ImageCaptureDiff)
	api.GET("/latest/linesofcode", latest.LinesOfCode)
	api.GET("/latest/codecoverage", latest.CodeCoverage)
	api.GET("/latest/unittest", latest.UnitTests)
	api.GET("/latest/imagecapture", latest.ImageCaptures)
	api.GET("/latest/imagecapturediff", latest.ImageCaptureDiff)
	api.GET("/history/codecoverage", latest.CoverageHistory)
	api.GET("/owners", latest.Owners)
	api.GET("/repositories", latest.Repositories)
	api.GET("/branches", latest.Branches)
	api.POST("/notifications/build", middleware.IntakeRequired(cfg.Notification.IntakeToken, auth), notify.Build)
	api.POST("/admin/login", admin.Login)

	adminAPI := api.Group("/admin", middleware.AdminRequired(auth))
	adminAPI.POST("/logout", admin.Logout)
	adminAPI.GET("/session", admin.Session)
	adminAPI.PUT("/repositories/default-branch", admin.UpdateDefaultBranch)
	adminAPI.POST("/owners", admin.AddOwner)
	adminAPI.DELETE("/owners/:owner", admin.RemoveOwner)
	adminAPI.POST("/retention/run", admin.RunRetention)
	adminAPI.GET("/notification-channels", channels.List)
	adminAPI.POST("/notification-channels", channels.Create)
	adminAPI.GET("/notification-channels/:id", channels.GetByID)
	adminAPI.PUT("/notification-channels/:id", channels.Update)
	adminAPI.DELETE("/notification-channels/:id", channels.Delete)

	site := r.Group("/", middleware.OptionalAdmin(auth))
	site.GET("/", pages.Index)
	site.GET("/repositories", pages.Repositories)
	site.GET("/repositories/repositoryDetails", pages.RepositoryDetails)
	site.GET("/repositories/linesOfCodeDetails", pages.LinesOfCodeDetails)
	site.GET("/repositories/codeCoverageDetails", pages.CodeCoverageDetails)
	site.GET("/repositories/unitTestDetails", pages.UnitTestDetails)
	site.GET("/repositories/imageCaptureDetails", pages.ImageCaptureDetails)
	site.GET("/repositories/imageCaptureDiffDetails", pages.ImageCaptureDiffDetails)
	site.GET("/repositories/changeBranch", pages.ChangeBranch)

	ts.router = r
	return ts
}

func (ts *testServer) do(method, target string, body []byte, token string) *httptest.ResponseRecorder {
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return ts.doWithHeaders(method, target, body, headers)
}

func (ts *testServer) doWithHeaders(method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(t *testing.T, kind, query, body string) {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/upload/"+kind+"?"+query, []byte(body), "")
	if w.Code != http.StatusOK {
		t.Fatalf("upload %s: status %d, body %s", kind, w.Code, w.Body.String())
	}
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/admin/login", []byte(`{"password":"`+testAdminPassword+`"}`), "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data services.LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Data.Token
}

func (ts *testServer) queued() []*services.BuildEvent {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]*services.BuildEvent(nil), ts.events...)
}

const mainScope = "owner=acme&repository=app&branch=main"
