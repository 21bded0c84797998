package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMaintenanceMode_BlocksRequestsExceptHealthCheck(t *testing.T) {
	w := performRequest(t, MaintenanceMode(), "/rooms/abc")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = performRequest(t, MaintenanceMode(), "/health")
	assert.NotEqual(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestID_GeneratesOneWhenAbsent(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequestID()(c)

	id, exists := c.Get("request_id")
	assert.True(t, exists)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, recorder.Header().Get("X-Request-ID"))
}

func TestRequestID_PreservesIncomingHeader(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Request-ID", "caller-supplied-id")

	RequestID()(c)

	id, _ := c.Get("request_id")
	assert.Equal(t, "caller-supplied-id", id)
}
