package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueVerifyRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret")
	require.NoError(t, err)

	token, err := m.Issue("user-123")
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	m1, err := NewManager("secret-one")
	require.NoError(t, err)
	m2, err := NewManager("secret-two")
	require.NoError(t, err)

	token, err := m1.Issue("user-123")
	require.NoError(t, err)

	_, err = m2.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestManager_RejectsGarbageToken(t *testing.T) {
	m, err := NewManager("test-secret")
	require.NoError(t, err)

	_, err = m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := NewManager("test-secret")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", Middleware(m), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserKey))
	})

	t.Run("no header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token resolves user", func(t *testing.T) {
		token, err := m.Issue("user-123")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-123", w.Body.String())
	})
}
