package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/framecraft/api/internal/executor"
	"github.com/framecraft/api/internal/handler"
	"github.com/framecraft/api/internal/lock"
	"github.com/framecraft/api/internal/middleware"
	"github.com/framecraft/api/internal/notify"
	"github.com/framecraft/api/internal/scheduler"
	"github.com/framecraft/api/internal/service"
	"github.com/framecraft/api/internal/store"
	ws "github.com/framecraft/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

const testUserID = "test-user-123"

// testApp holds all components needed for testing.
type testApp struct {
	app   *fiber.App
	auth  *middleware.AuthMiddleware
	locks *lock.Memory
}

// setupApp creates a Fiber app wired like main.go but on the in-memory
// backend: memory store and locks, the edit simulator with a tiny step delay,
// and inline notification delivery. No Redis required.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	log := zerolog.Nop()

	st := store.NewMemory()
	locks := lock.NewMemory()

	notifier := notify.NewInline(notify.NewLogSink(log), log)
	exec := executor.NewSimulator(time.Millisecond)

	hub := ws.NewHub(log)
	go hub.Run()

	sched := scheduler.New(st, locks, exec, notifier, hub, log, scheduler.Config{
		Workers:      4,
		LockTTL:      5 * time.Second,
		RetryBackoff: 10 * time.Millisecond,
	})
	sched.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sched.Shutdown(ctx)
	})

	validate := validator.New()

	assetService := service.NewAssetService(st)
	lockService := service.NewLockService(st, locks, &service.OwnerAuthorizer{Assets: st}, notifier, 5*time.Minute)

	assetHandler := handler.NewAssetHandler(assetService, validate)
	editHandler := handler.NewEditHandler(sched, validate)
	lockHandler := handler.NewLockHandler(lockService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rate limiters are left off; they need Redis and fail open anyway.
	api := app.Group("/api", authMiddleware.Authenticate())

	assets := api.Group("/assets")
	assets.Post("/", assetHandler.Create)
	assets.Get("/:assetId", assetHandler.Get)
	assets.Delete("/:assetId", assetHandler.Delete)
	assets.Get("/:assetId/head", assetHandler.Head)
	assets.Get("/:assetId/versions", assetHandler.History)
	api.Get("/versions/:versionId", assetHandler.GetVersion)

	edits := api.Group("/edits")
	edits.Post("/", editHandler.Submit)
	edits.Get("/:jobId", editHandler.Status)

	locksGroup := assets.Group("/:assetId/lock")
	locksGroup.Post("/", lockHandler.Acquire)
	locksGroup.Delete("/", lockHandler.Release)
	locksGroup.Get("/", lockHandler.Get)

	return &testApp{app: app, auth: authMiddleware, locks: locks}
}

// generateToken creates a JWT for test requests.
func (ta *testApp) generateToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := ta.auth.GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request authenticated as the default test user.
func (ta *testApp) doAuthRequest(t *testing.T, method, path, body string) (*http.Response, error) {
	t.Helper()
	return ta.doAuthRequestAs(t, testUserID, method, path, body)
}

// doAuthRequestAs performs a request authenticated as a specific user.
func (ta *testApp) doAuthRequestAs(t *testing.T, userID, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := ta.generateToken(t, userID)
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// createAsset registers an asset over the API and returns its ID.
func (ta *testApp) createAsset(t *testing.T) string {
	t.Helper()
	resp, err := ta.doAuthRequest(t, "POST", "/api/assets/",
		`{"kind":"video","title":"demo reel","payloadRef":"blob://uploads/demo.mp4"}`)
	if err != nil {
		t.Fatalf("create asset request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	asset, ok := result["asset"].(map[string]interface{})
	if !ok {
		t.Fatalf("create response missing asset: %v", result)
	}
	id, _ := asset["id"].(string)
	if id == "" {
		t.Fatalf("create response missing asset id: %v", result)
	}
	return id
}

// waitForJob polls the status endpoint until the job reaches a terminal state.
func (ta *testApp) waitForJob(t *testing.T, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := ta.doAuthRequest(t, "GET", "/api/edits/"+jobID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)
		job := parseJSON(t, resp)
		status, _ := job["status"].(string)
		if status == "completed" || status == "failed" {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}
