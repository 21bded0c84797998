package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/leoherzog/seedless-sub001/internal/kv"
)

func init() { gin.SetMode(gin.TestMode) }

func performRequest(t *testing.T, handler gin.HandlerFunc, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, url, nil)
	handler(c)
	return w
}

func TestRateLimiter_AllowsRequestsUnderTheLimit(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := RateLimiter(store, 3, time.Minute)

	for i := 0; i < 3; i++ {
		w := performRequest(t, handler, "/ws?room=r1&user=u1")
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}
}

func TestRateLimiter_BlocksOnceLimitIsExceeded(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := RateLimiter(store, 2, time.Minute)

	performRequest(t, handler, "/ws?room=r1&user=u1")
	performRequest(t, handler, "/ws?room=r1&user=u1")
	w := performRequest(t, handler, "/ws?room=r1&user=u1")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_KeysByRoomAndUserSeparatelyFromOtherUsers(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := RateLimiter(store, 1, time.Minute)

	w1 := performRequest(t, handler, "/ws?room=r1&user=u1")
	w2 := performRequest(t, handler, "/ws?room=r1&user=u2")

	assert.NotEqual(t, http.StatusTooManyRequests, w1.Code)
	assert.NotEqual(t, http.StatusTooManyRequests, w2.Code, "a different user in the same room must get its own bucket")
}

func TestRateLimiter_FailsOpenWhenStoreErrors(t *testing.T) {
	handler := RateLimiter(erroringStore{}, 0, time.Minute)
	w := performRequest(t, handler, "/ws?room=r1&user=u1")
	assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
}

type erroringStore struct{ kv.Store }

func (erroringStore) Get(key string) ([]byte, error) { return nil, errors.New("boom") }
