package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"locksmith/internal/dlock"
	"locksmith/internal/metrics"
	"locksmith/internal/pubsub"
)

type acquireLockRequest struct {
	TTLMs       int64 `json:"ttl_ms" validate:"omitempty,gte=1"`
	MaxAttempts int   `json:"max_attempts" validate:"omitempty,gte=1"`
	WaitMs      int64 `json:"wait_ms" validate:"omitempty,gte=0"`
}

type acquireLockResponse struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
	Token    string `json:"token"`
	TTLMs    int64  `json:"ttl_ms"`
}

type releaseLockRequest struct {
	Token string `json:"token" validate:"required"`
}

type touchLockRequest struct {
	Token string `json:"token" validate:"required"`
	TTLMs int64  `json:"ttl_ms" validate:"required,gte=1"`
}

type lockStatusResponse struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
	Held     bool   `json:"held"`
	TTLMs    int64  `json:"ttl_ms"`
}

// bindRequest decodes an optional JSON body and validates it
func bindRequest(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			createErrorResponse(c, http.StatusBadRequest, "Invalid request body")
			return false
		}
	}
	if err := validate.Struct(req); err != nil {
		createErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// acquireLock godoc
// @Summary Acquire a lock
// @Description Acquire the lock on a resource. Without max_attempts a single attempt is made.
// @Tags locks
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param request body acquireLockRequest false "Lock parameters"
// @Success 200 {object} acquireLockResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Lock is held"
// @Failure 503 {object} ErrorResponse "Lock store unavailable"
// @Router /locks/{resource} [post]
func (api *apiDetails) acquireLock(c *gin.Context) {
	ctx := c.Request.Context()
	resource := c.Param("resource")

	var req acquireLockRequest
	if !bindRequest(c, &req) {
		return
	}

	ttl := api.defaults.TTL
	if req.TTLMs > 0 {
		ttl = time.Duration(req.TTLMs) * time.Millisecond
	}
	wait := api.defaults.Wait
	if req.WaitMs > 0 {
		wait = time.Duration(req.WaitMs) * time.Millisecond
	}

	start := time.Now()
	var (
		token    string
		acquired bool
		err      error
	)
	if req.MaxAttempts > 1 {
		token, err = api.locker.Optimistic(ctx, resource, ttl, req.MaxAttempts, wait)
		acquired = err == nil
	} else {
		token, acquired, err = api.locker.Lock(ctx, resource, ttl)
	}

	elapsed := time.Since(start)

	if err != nil {
		status := lockErrorStatus(err)
		if status == http.StatusConflict {
			api.metrics.ObserveAcquire(metrics.OutcomeUnobtainable, elapsed, false)
			api.emit(ctx, pubsub.EventUnobtainable, resource, elapsed)
		} else {
			api.metrics.ObserveAcquire(metrics.OutcomeError, elapsed, false)
		}
		if status >= http.StatusInternalServerError {
			api.logger.Error("Failed to acquire lock", "resource", resource, "error", err)
		}
		createErrorResponse(c, status, err.Error())
		return
	}

	if !acquired {
		api.metrics.ObserveAcquire(metrics.OutcomeUnobtainable, elapsed, false)
		api.emit(ctx, pubsub.EventUnobtainable, resource, elapsed)
		createErrorResponse(c, http.StatusConflict, "Lock is held")
		return
	}

	slow := api.defaults.AcquireWarnThreshold > 0 && elapsed > api.defaults.AcquireWarnThreshold
	api.metrics.ObserveAcquire(metrics.OutcomeAcquired, elapsed, slow)
	api.emit(ctx, pubsub.EventAcquired, resource, elapsed)

	api.logger.Debug("Lock acquired", "resource", resource, "ttl", ttl)

	c.JSON(http.StatusOK, &acquireLockResponse{
		Resource: resource,
		Key:      api.locker.MakeKey(resource),
		Token:    token,
		TTLMs:    ttl.Milliseconds(),
	})
}

// releaseLock godoc
// @Summary Release a lock
// @Description Release the lock if the token still owns it. released is 0 when it does not.
// @Tags locks
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param request body releaseLockRequest true "Ownership token"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 503 {object} ErrorResponse "Lock store unavailable"
// @Router /locks/{resource} [delete]
func (api *apiDetails) releaseLock(c *gin.Context) {
	ctx := c.Request.Context()
	resource := c.Param("resource")

	var req releaseLockRequest
	if !bindRequest(c, &req) {
		return
	}

	released, err := api.locker.Unlock(ctx, resource, req.Token)
	if !errors.Is(err, dlock.ErrInvalidArgument) {
		api.metrics.ObserveRelease(released == 1, err)
	}
	if err != nil {
		status := lockErrorStatus(err)
		if status >= http.StatusInternalServerError {
			api.logger.Error("Failed to release lock", "resource", resource, "error", err)
		}
		createErrorResponse(c, status, err.Error())
		return
	}

	if released == 1 {
		api.emit(ctx, pubsub.EventReleased, resource, 0)
	}

	c.JSON(http.StatusOK, gin.H{"released": released})
}

// touchLock godoc
// @Summary Extend a lock
// @Description Reset the lock ttl if the token still owns it. extended is 0 when it does not.
// @Tags locks
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param request body touchLockRequest true "Ownership token and new ttl"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 503 {object} ErrorResponse "Lock store unavailable"
// @Router /locks/{resource}/ttl [put]
func (api *apiDetails) touchLock(c *gin.Context) {
	ctx := c.Request.Context()
	resource := c.Param("resource")

	var req touchLockRequest
	if !bindRequest(c, &req) {
		return
	}

	extended, err := api.locker.Touch(ctx, resource, req.Token, time.Duration(req.TTLMs)*time.Millisecond)
	if err != nil {
		status := lockErrorStatus(err)
		if status >= http.StatusInternalServerError {
			api.logger.Error("Failed to extend lock", "resource", resource, "error", err)
		}
		createErrorResponse(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"extended": extended})
}

// lockStatus godoc
// @Summary Inspect a lock
// @Tags locks
// @Produce json
// @Param resource path string true "Resource name"
// @Success 200 {object} lockStatusResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 503 {object} ErrorResponse "Lock store unavailable"
// @Router /locks/{resource} [get]
func (api *apiDetails) lockStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resource := c.Param("resource")

	state, err := api.locker.Inspect(ctx, resource)
	if err != nil {
		createErrorResponse(c, lockErrorStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, &lockStatusResponse{
		Resource: state.Resource,
		Key:      state.Key,
		Held:     state.Held,
		TTLMs:    state.TTL.Milliseconds(),
	})
}

// emit publishes a lock event when events are enabled; failures are only logged
func (api *apiDetails) emit(ctx context.Context, typ pubsub.EventType, resource string, elapsed time.Duration) {
	if api.events == nil {
		return
	}
	event := pubsub.LockEvent{
		Type:      typ,
		Resource:  resource,
		Key:       api.locker.MakeKey(resource),
		At:        time.Now().UTC(),
		ElapsedMs: elapsed.Milliseconds(),
	}
	if err := api.events.Emit(context.WithoutCancel(ctx), event); err != nil {
		api.logger.Warn("Failed to publish lock event", "resource", resource, "type", string(typ), "error", err)
	}
}
