package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tutorcast/api/internal/assembly"
	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/handler"
	"github.com/tutorcast/api/internal/middleware"
	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/internal/session"
	"github.com/tutorcast/api/internal/websocket"
	"github.com/tutorcast/api/internal/worker"
)

const testSessionSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	outDir string
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// setupApp wires the same stack as cmd/server against Redis DB 15, with an
// in-process asynq worker that assembles projects into a temp directory.
// Tests are skipped when Redis is not reachable.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr(),
		DB:   15, // use DB 15 for tests to avoid collision
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", redisAddr(), err)
	}
	t.Cleanup(func() { redisClient.Close() })

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr(), DB: 15}
	asynqClient := asynq.NewClient(redisOpt)
	t.Cleanup(func() { asynqClient.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	validate := model.NewValidator()
	hub := websocket.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	// Services
	compileService := service.NewCompileService(service.CompileServiceConfig{
		Redis:   redisClient,
		Asynq:   asynqClient,
		Logger:  log,
		Options: compiler.DefaultOptions(),
	})
	tokens, err := session.NewTokenIssuer(testSessionSecret, time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	playbackService := service.NewPlaybackService(service.PlaybackServiceConfig{
		Store:    session.NewRedisStore(redisClient, time.Hour),
		Projects: compileService,
		Tokens:   tokens,
		Events:   hub,
		Logger:   log,
	})

	// Worker
	outDir := t.TempDir()
	publisher := &worker.Publisher{
		Source: assembly.DirSource{Root: t.TempDir()},
		SinkFor: func(projectID string) assembly.Sink {
			return assembly.DirSink{Root: outDir + "/" + projectID}
		},
	}
	compileWorker := worker.NewCompileWorker(compileService, hub, publisher, log)
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{service.QueueCompile: 1},
		LogLevel:    asynq.ErrorLevel,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeCompile, compileWorker.ProcessTask)
	if err := srv.Start(mux); err != nil {
		t.Fatalf("asynq server: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    50 * 1024 * 1024,
	})

	// Use very high rate limits so tests don't get blocked
	handler.Register(app, handler.Routes{
		Compile:         handler.NewCompileHandler(compileService, validate),
		Sessions:        handler.NewSessionHandler(playbackService, validate),
		Verifier:        playbackService,
		RateLimiter:     middleware.NewRateLimiter(redisClient),
		Hub:             hub,
		CompilePerHour:  10000,
		SessionsPerHour: 10000,
		Health: func() fiber.Map {
			return fiber.Map{"redis": true, "narration": false, "storage": false}
		},
	})

	return &testApp{app: app, outDir: outDir}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
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

// doSessionRequest performs a request carrying a viewer token.
func doSessionRequest(app *fiber.App, method, path, body, token string) (*http.Response, error) {
	return doRequest(app, method, path, body, map[string]string{
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

// parseJSON parses response body into a map.
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
