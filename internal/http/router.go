package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-desk/internal/service"
)

const requestIDHeader = "X-Request-ID"

// RouterOptions agrupa la configuración transversal del router.
type RouterOptions struct {
	Sessions   *service.SessionService
	CookieName string
	AdminKey   string
	StaticDir  string
	// TrustedProxies habilita X-Forwarded-For solo para estos IP/CIDR; nil no confía en ninguno.
	TrustedProxies []string
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	opts RouterOptions,
	userH *UserHandler,
	messageH *MessageHandler,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CookieName == "" {
		opts.CookieName = "sid"
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, ignoring forwarded headers", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(
		jsonContentTypeMiddleware(),
		SessionMiddleware(opts.Sessions, opts.CookieName),
		AdminKeyMiddleware(opts.AdminKey),
	)
	api.POST("/register", userH.Register)
	api.POST("/login", userH.Login)
	api.POST("/logout", userH.Logout)
	api.GET("/user", userH.CurrentUser)

	api.GET("/messages", messageH.ListMessages)
	api.POST("/messages", RequireSession(opts.Sessions, opts.CookieName), messageH.PostMessage)
	api.POST("/messages/reply", messageH.Reply)

	r.NoRoute(noRouteHandler(opts.StaticDir))

	return r
}

// noRouteHandler sirve archivos estáticos fuera de /api; dentro de /api responde 404 en JSON.
func noRouteHandler(staticDir string) gin.HandlerFunc {
	var files http.Handler
	if staticDir != "" {
		files = http.FileServer(http.Dir(staticDir))
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		isAPI := path == "/api" || strings.HasPrefix(path, "/api/")
		if files == nil || isAPI || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

// requestIDMiddleware propaga X-Request-ID o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDHeader)),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
