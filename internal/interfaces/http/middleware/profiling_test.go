package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func profilingEngine(cfg ProfilingConfig, seen map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Profiling(cfg))
	record := func(c *gin.Context) {
		for _, key := range []string{"route", "method"} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				seen[key] = v
			}
		}
		c.Status(http.StatusOK)
	}
	engine.GET("/api/v1/invoices/:number", record)
	engine.GET("/health", record)
	return engine
}

func TestProfiling(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
		want map[string]string
	}{
		{
			name: "labels route pattern and method",
			cfg:  DefaultProfilingConfig(),
			path: "/api/v1/invoices/INV2025001",
			want: map[string]string{"route": "/api/v1/invoices/:number", "method": "GET"},
		},
		{
			name: "skips health checks",
			cfg:  DefaultProfilingConfig(),
			path: "/health",
			want: map[string]string{},
		},
		{
			name: "disabled",
			cfg:  ProfilingConfig{},
			path: "/api/v1/invoices/INV2025001",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := map[string]string{}
			engine := profilingEngine(tt.cfg, seen)

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}
