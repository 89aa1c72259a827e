package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, err := m.GenerateAccessToken("user-1", "guest@resort.test", RoleStaff)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)

	_, err = NewJWTManager("other", time.Minute).ParseAndValidate(token)
	assert.Error(t, err)

	_, err = m.GenerateAccessToken("user-1", "x", "owner")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	issued := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken("user-1", "guest@resort.test", RoleGuest)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleStaff))
	assert.True(t, RoleStaff.AtLeast(RoleStaff))
	assert.False(t, RoleGuest.AtLeast(RoleStaff))
	assert.False(t, RoleStaff.AtLeast(RoleAdmin))
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Minute)

	r := gin.New()
	r.GET("/staff", AuthRequired(m), RequireRole(RoleStaff), func(c *gin.Context) {
		c.String(http.StatusOK, string(GetUserRole(c)))
	})

	do := func(role Role) *httptest.ResponseRecorder {
		token, err := m.GenerateAccessToken("u", "u@resort.test", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, do(RoleGuest).Code)
	assert.Equal(t, http.StatusOK, do(RoleStaff).Code)
	assert.Equal(t, "admin", do(RoleAdmin).Body.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
