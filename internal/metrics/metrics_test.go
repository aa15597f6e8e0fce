package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Instrument())
	r.GET("/lectures/getbyid/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	counter := HTTPRequests.WithLabelValues(http.MethodGet, "/lectures/getbyid/:id", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lectures/getbyid/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}
