package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

const (
	testKey    = "test-key"
	testIssuer = "virtualboard"
)

var teacher = account.Identity{ID: "t-1", Role: account.RoleTeacher, Email: "t@x.io", Name: "Ada"}

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(teacher, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := Parse(tok.Value, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, teacher, claims.Identity())
}

func TestParseRejects(t *testing.T) {
	good, err := Issue(teacher, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	expired, err := Issue(teacher, testIssuer, testKey, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(good.Value, "other-key", testIssuer)
	assert.Error(t, err)
	_, err = Parse(good.Value, testKey, "someone-else")
	assert.Error(t, err)
	_, err = Parse(expired.Value, testKey, testIssuer)
	assert.Error(t, err)
	_, err = Parse("garbage", testKey, testIssuer)
	assert.Error(t, err)
}

func TestIssueRequiresRole(t *testing.T) {
	_, err := Issue(account.Identity{ID: "x"}, testIssuer, testKey, time.Hour)
	assert.Error(t, err)
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// render errors the way the api does, minus translation
	r.Use(func(c *gin.Context) {
		c.Next()
		if err := c.Errors.Last(); err != nil {
			status := http.StatusInternalServerError
			switch apperr.KindOf(err.Err) {
			case apperr.Unauthenticated:
				status = http.StatusUnauthorized
			case apperr.Forbidden:
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": apperr.Public(err.Err)})
		}
	})
	g := r.Group("/", Required(testKey, testIssuer))
	g.GET("/me", func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": id.ID, "role": id.Role})
	})
	g.GET("/students-only", RequireRole(account.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMiddleware(t *testing.T) {
	r := newRouter()
	tok, err := Issue(teacher, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"missing token", "/me", nil, http.StatusUnauthorized},
		{"bad token", "/me", map[string]string{HeaderName: "nope"}, http.StatusUnauthorized},
		{"custom header", "/me", map[string]string{HeaderName: tok.Value}, http.StatusOK},
		{"bearer header", "/me", map[string]string{"Authorization": "Bearer " + tok.Value}, http.StatusOK},
		{"wrong role", "/students-only", map[string]string{HeaderName: tok.Value}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
