package router

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicegen/backend/internal/interfaces/http/handler"
	"github.com/invoicegen/backend/internal/interfaces/http/middleware"
)

// NewInvoiceRoutes builds the /invoices group. Routes that render documents
// pass through limiter; a nil limiter leaves them unlimited.
func NewInvoiceRoutes(h *handler.InvoiceHandler, limiter *middleware.RateLimiter) *DomainGroup {
	render := middleware.RateLimit(limiter)

	return NewDomainGroup("invoices", "/invoices").
		GET("/next-number", h.NextNumber).
		GET("", h.List).
		POST("", render, h.Generate).
		GET("/:number", h.Get).
		POST("/:number/paid", h.MarkPaid).
		GET("/:number/download", render, h.Download)
}

// NewSystemRoutes builds the /system group
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}

// NewHealthRoutes mounts the health check at the engine root
func NewHealthRoutes(h *handler.SystemHandler) RouteRegistrar {
	return healthRoutes{h: h}
}

type healthRoutes struct {
	h *handler.SystemHandler
}

func (r healthRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", r.h.Health)
}
