package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spinly/internal/assets"
	"spinly/internal/middleware"
	"spinly/internal/services"
	"spinly/internal/types"
	"spinly/internal/wheel"
)

const (
	sessionCookie = "spinly_session"
	// One day; the janitor drops idle sessions long before that anyway.
	sessionCookieMaxAge = 24 * 60 * 60
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	spins     *services.SpinService
	stock     *services.StockService
	logs      *services.LogService
	assets    *assets.Store
	limiter   *middleware.RateLimiter
	templates *template.Template
}

// NewHTTPHandler creates a new HTTPHandler. limiter may be nil to disable
// spin rate limiting.
func NewHTTPHandler(
	spins *services.SpinService,
	stock *services.StockService,
	logs *services.LogService,
	assetStore *assets.Store,
	limiter *middleware.RateLimiter,
	templates *template.Template,
) *HTTPHandler {
	return &HTTPHandler{
		spins:     spins,
		stock:     stock,
		logs:      logs,
		assets:    assetStore,
		limiter:   limiter,
		templates: templates,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	// Step 1: Render the specific page content into a buffer.
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Errorf("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	// Step 2: Add the rendered content to the main data map and render the layout.
	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	err = h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData)
	if err != nil {
		logger.Errorf("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.ViewerSession(), h.ShowWheel)
	router.GET("/stock", h.ShowStockPage)
	router.GET("/logs", h.ShowLogsPage)
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/stock", h.GetStock)
	api.POST("/stock", h.ReplaceStock)
	api.POST("/upload", h.Upload)
	api.GET("/blob/:store/:key", h.GetBlob)
	api.POST("/logs/write", h.WriteLog)
	api.GET("/logs/read", h.ReadLogs)

	spin := []gin.HandlerFunc{h.Spin}
	if h.limiter != nil {
		spin = append([]gin.HandlerFunc{h.limiter.Handler()}, spin...)
	}

	sessions := api.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.POST("/:id/spin", spin...)
	sessions.POST("/:id/settle", h.Settle)
	sessions.POST("/:id/reveal", h.RevealComplete)
	sessions.POST("/:id/close", h.Close)
	sessions.DELETE("/:id", h.EndSession)
}

// ViewerSession makes sure the viewer has a live spin session, reusing the
// one named by the session cookie when it still exists.
func (h *HTTPHandler) ViewerSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err == nil && id != "" {
			if _, err := h.spins.State(id); err == nil {
				c.Set("sessionID", id)
				c.Next()
				return
			}
		}

		id = h.spins.StartSession()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, sessionCookieMaxAge, "/", "", false, true)
		c.Set("sessionID", id)
		c.Next()
	}
}

// ShowWheel handles the request for the wheel page.
func (h *HTTPHandler) ShowWheel(c *gin.Context) {
	items, err := h.stock.Available(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to load stock for wheel page: %v", err)
	}
	id := c.GetString("sessionID")
	status := wheel.Idle
	if state, serr := h.spins.State(id); serr == nil {
		status = state.Status
	}
	data := gin.H{
		"title":     "Spin the Wheel",
		"SessionID": id,
		"Status":    string(status),
		"Items":     items,
		"LoadError": err != nil,
	}
	h.renderPage(c, data, "index.html")
}

// ShowStockPage handles the request for the stock editor page.
func (h *HTTPHandler) ShowStockPage(c *gin.Context) {
	items, err := h.stock.All(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to load stock for editor: %v", err)
	}
	data := gin.H{
		"title":     "Stock",
		"Items":     items,
		"LoadError": err != nil,
	}
	h.renderPage(c, data, "stock.html")
}

// ShowLogsPage handles the request for the spin log page.
func (h *HTTPHandler) ShowLogsPage(c *gin.Context) {
	entries, err := h.logs.List(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to load spin log: %v", err)
	}
	data := gin.H{
		"title":     "Spin Log",
		"Entries":   entries,
		"LoadError": err != nil,
	}
	h.renderPage(c, data, "logs.html")
}

// Health reports liveness along with the number of live sessions.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.spins.SessionCount()})
}

// respondError writes err as a JSON error with the status for its code.
// Internal causes are logged, never returned to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	code := types.CodeOf(err)
	var appErr *types.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		if code == "" {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func statusFor(err error) int {
	switch types.CodeOf(err) {
	case types.ErrValidation:
		return http.StatusUnprocessableEntity
	case types.ErrInvalidInput:
		return http.StatusBadRequest
	case types.ErrInvalidState:
		return http.StatusConflict
	case types.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
