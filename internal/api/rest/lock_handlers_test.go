package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"locksmith/internal/dlock"
	"locksmith/internal/metrics"
	"locksmith/internal/pubsub"
	"locksmith/mocks"
)

// setupTestLogger creates a test logger
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

var testDefaults = LockDefaults{TTL: 30 * time.Second, Wait: 10 * time.Millisecond}

// newTestContext builds a gin context for resource with an optional JSON body
func newTestContext(method, resource string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	c.Request, _ = http.NewRequest(method, "/api/v1/locks/"+resource, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "resource", Value: resource}}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err, "Should be able to parse response JSON")
	return response
}

// TestAcquireLock tests the acquireLock handler
func TestAcquireLock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	t.Run("Lock acquired with defaults", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Lock(gomock.Any(), "orders", testDefaults.TTL).Return("tok-1", true, nil)
		locker.EXPECT().MakeKey("orders").Return("orders:lock")

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", nil)
		api.acquireLock(c)

		assert.Equal(t, http.StatusOK, w.Code, "HTTP status should be 200 OK")
		response := decodeBody(t, w)
		assert.Equal(t, "orders", response["resource"])
		assert.Equal(t, "orders:lock", response["key"])
		assert.Equal(t, "tok-1", response["token"])
		assert.EqualValues(t, 30000, response["ttl_ms"])
	})

	t.Run("Lock held elsewhere", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Lock(gomock.Any(), "orders", 2*time.Second).Return("", false, nil)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", acquireLockRequest{TTLMs: 2000})
		api.acquireLock(c)

		assert.Equal(t, http.StatusConflict, w.Code, "HTTP status should be 409 Conflict")
		assert.Equal(t, "Lock is held", decodeBody(t, w)["message"])
	})

	t.Run("Retries use Optimistic", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().
			Optimistic(gomock.Any(), "orders", testDefaults.TTL, 5, 50*time.Millisecond).
			Return("tok-2", nil)
		locker.EXPECT().MakeKey("orders").Return("orders:lock")

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", acquireLockRequest{MaxAttempts: 5, WaitMs: 50})
		api.acquireLock(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tok-2", decodeBody(t, w)["token"])
	})

	t.Run("Retries exhausted", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().
			Optimistic(gomock.Any(), "orders", testDefaults.TTL, 2, testDefaults.Wait).
			Return("", &dlock.UnobtainableError{Resource: "orders", TTL: testDefaults.TTL, MaxAttempts: 2, Wait: testDefaults.Wait})

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", acquireLockRequest{MaxAttempts: 2})
		api.acquireLock(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, decodeBody(t, w)["message"], "after 2 attempts")
	})

	t.Run("Store unavailable", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Lock(gomock.Any(), "orders", testDefaults.TTL).
			Return("", false, &dlock.StoreError{Op: "lock", Key: "orders:lock", Err: errors.New("connection refused")})

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", nil)
		api.acquireLock(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Invalid body", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPost, "orders", map[string]interface{}{"ttl_ms": -5})
		api.acquireLock(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAcquireLockMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	reg := prometheus.NewRegistry()

	locker := mocks.NewMockDistributedLock(ctrl)
	gomock.InOrder(
		locker.EXPECT().Lock(gomock.Any(), "orders", testDefaults.TTL).Return("tok-1", true, nil),
		locker.EXPECT().Lock(gomock.Any(), "orders", testDefaults.TTL).Return("", false, nil),
	)
	locker.EXPECT().MakeKey("orders").Return("orders:lock")
	locker.EXPECT().Unlock(gomock.Any(), "orders", "tok-1").Return(int64(1), nil)

	api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
	WithMetrics(reg, metrics.NewRecorder(reg))(api)

	c, _ := newTestContext(http.MethodPost, "orders", nil)
	api.acquireLock(c)
	c, _ = newTestContext(http.MethodPost, "orders", nil)
	api.acquireLock(c)
	c, _ = newTestContext(http.MethodDelete, "orders", releaseLockRequest{Token: "tok-1"})
	api.releaseLock(c)

	count, err := testutil.GatherAndCount(reg, "dlock_acquisitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "acquired and unobtainable series should exist")

	count, err = testutil.GatherAndCount(reg, "dlock_releases_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLockHandlerEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	locker := mocks.NewMockDistributedLock(ctrl)
	locker.EXPECT().MakeKey("orders").Return("orders:lock").AnyTimes()
	locker.EXPECT().Lock(gomock.Any(), "orders", testDefaults.TTL).Return("tok-1", true, nil)
	locker.EXPECT().Unlock(gomock.Any(), "orders", "tok-1").Return(int64(1), nil)

	var published []pubsub.LockEvent
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), pubsub.TopicLockEvents, "orders", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, msg []byte) error {
			var event pubsub.LockEvent
			require.NoError(t, json.Unmarshal(msg, &event))
			published = append(published, event)
			return nil
		}).Times(2)

	api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
	WithEvents(pubsub.NewEventEmitter(publisher, ""))(api)

	c, w := newTestContext(http.MethodPost, "orders", nil)
	api.acquireLock(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodDelete, "orders", releaseLockRequest{Token: "tok-1"})
	api.releaseLock(c)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, published, 2)
	assert.Equal(t, pubsub.EventAcquired, published[0].Type)
	assert.Equal(t, pubsub.EventReleased, published[1].Type)
	assert.Equal(t, "orders:lock", published[1].Key)
}

// TestReleaseLock tests the releaseLock handler
func TestReleaseLock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	t.Run("Lock released", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Unlock(gomock.Any(), "orders", "tok-1").Return(int64(1), nil)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodDelete, "orders", releaseLockRequest{Token: "tok-1"})
		api.releaseLock(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decodeBody(t, w)["released"])
	})

	t.Run("Token no longer owns the lock", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Unlock(gomock.Any(), "orders", "stale").Return(int64(0), nil)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodDelete, "orders", releaseLockRequest{Token: "stale"})
		api.releaseLock(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, decodeBody(t, w)["released"])
	})

	t.Run("Missing token", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodDelete, "orders", nil)
		api.releaseLock(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestTouchLock tests the touchLock handler
func TestTouchLock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	t.Run("Lease extended", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Touch(gomock.Any(), "orders", "tok-1", 5*time.Second).Return(int64(1), nil)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPut, "orders", touchLockRequest{Token: "tok-1", TTLMs: 5000})
		api.touchLock(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decodeBody(t, w)["extended"])
	})

	t.Run("Invalid argument from lock", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)
		locker.EXPECT().Touch(gomock.Any(), "orders", "tok-1", 5*time.Second).
			Return(int64(0), fmt.Errorf("%w: resource contains whitespace", dlock.ErrInvalidArgument))

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPut, "orders", touchLockRequest{Token: "tok-1", TTLMs: 5000})
		api.touchLock(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing ttl", func(t *testing.T) {
		locker := mocks.NewMockDistributedLock(ctrl)

		api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
		c, w := newTestContext(http.MethodPut, "orders", touchLockRequest{Token: "tok-1"})
		api.touchLock(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestLockStatus tests the lockStatus handler
func TestLockStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	locker := mocks.NewMockDistributedLock(ctrl)
	locker.EXPECT().Inspect(gomock.Any(), "orders").Return(dlock.State{
		Resource: "orders",
		Key:      "orders:lock",
		Held:     true,
		TTL:      1500 * time.Millisecond,
	}, nil)

	api := &apiDetails{logger: setupTestLogger(), locker: locker, defaults: testDefaults}
	c, w := newTestContext(http.MethodGet, "orders", nil)
	api.lockStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, true, response["held"])
	assert.EqualValues(t, 1500, response["ttl_ms"])
}

func TestLockErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("%w: empty resource", dlock.ErrInvalidArgument), http.StatusBadRequest},
		{"unobtainable", &dlock.UnobtainableError{Resource: "r", MaxAttempts: 1}, http.StatusConflict},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
		{"deadline", fmt.Errorf("lock: %w", context.DeadlineExceeded), http.StatusRequestTimeout},
		{"store", errors.New("boom"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lockErrorStatus(tt.err))
		})
	}
}

// TestSetupRouter tests the route setup
func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	api := &apiDetails{
		logger:   setupTestLogger(),
		locker:   mocks.NewMockDistributedLock(ctrl),
		defaults: testDefaults,
		gatherer: prometheus.NewRegistry(),
	}
	router := api.setupRouter()

	expected := map[string]bool{
		"GET /api/v1/health":              false,
		"POST /api/v1/locks/:resource":    false,
		"DELETE /api/v1/locks/:resource":  false,
		"PUT /api/v1/locks/:resource/ttl": false,
		"GET /api/v1/locks/:resource":     false,
		"GET /metrics":                    false,
	}
	for _, route := range router.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}
	for route, found := range expected {
		assert.True(t, found, "Route %s should be registered", route)
	}

	t.Run("Health endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decodeBody(t, w)["status"])
	})

	t.Run("Swagger document", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/swagger/doc.json", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/locks/{resource}")
	})

	t.Run("Metrics endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewApi(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockDistributedLock(ctrl)
	logger := setupTestLogger()

	_, err := NewApi(nil, "8080", locker, testDefaults)
	assert.EqualError(t, err, "nil logger not allowed")

	_, err = NewApi(logger, "", locker, testDefaults)
	assert.EqualError(t, err, "empty port not allowed")

	_, err = NewApi(logger, "8080", nil, testDefaults)
	assert.EqualError(t, err, "nil locker not allowed")

	_, err = NewApi(logger, "8080", locker, LockDefaults{})
	assert.EqualError(t, err, "empty default lock ttl not allowed")

	reg := prometheus.NewRegistry()
	api, err := NewApi(logger, "8080", locker, testDefaults, WithMetrics(reg, metrics.NewRecorder(reg)))
	require.NoError(t, err)
	details := api.(*apiDetails)
	assert.Equal(t, ":8080", details.server.Addr)
	assert.NotNil(t, details.metrics)
	assert.Equal(t, reg, details.gatherer)
}
