package api

import (
	"bitwise74/campus-finder/service"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	tests := map[ErrKind]int{
		KindValidation:     400,
		KindAuthentication: 401,
		KindUnverified:     403,
		KindAuthorization:  403,
		KindNotFound:       404,
		KindTooLarge:       413,
		KindRateLimited:    429,
		KindUnavailable:    503,
		KindInternal:       500,
	}

	for kind, status := range tests {
		assert.Equal(t, status, kind.Status())
	}
}

func TestResultBody(t *testing.T) {
	ok := Ok("done", gin.H{"item": 1}).With(gin.H{"warning": "slow"}).body("req")
	assert.Equal(t, gin.H{"success": true, "message": "done", "item": 1, "warning": "slow", "requestID": "req"}, ok)

	// Empty messages are left out
	assert.NotContains(t, Ok("", nil).body("req"), "message")

	failed := Err(KindNotFound, "Item not found").body("req")
	assert.Equal(t, gin.H{"success": false, "error": "Item not found", "requestID": "req"}, failed)
}

func TestFromError(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("requestID", "req")

	r := fromError(c, fmt.Errorf("lookup: %w", service.ErrTooManyAttempts), "unused")
	assert.Equal(t, http.StatusTooManyRequests, r.Status())
	assert.Equal(t, service.ErrTooManyAttempts.Error(), r.message)

	// Unknown errors never reach the client
	r = fromError(c, errors.New("pq: connection refused"), "Failed to do things")
	assert.Equal(t, http.StatusInternalServerError, r.Status())
	assert.Equal(t, internalError, r.message)
}
