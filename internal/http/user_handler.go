package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"support-desk/internal/service"
)

// CookieConfig define cómo se emite la cookie de sesión.
type CookieConfig struct {
	Name   string
	Secure bool
}

// UserHandler mantiene dependencias para endpoints de cuenta y sesión.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	sessions *service.SessionService
	cookie   CookieConfig
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, sessions *service.SessionService, cookie CookieConfig) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookie.Name == "" {
		cookie.Name = "sid"
	}
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		sessions: sessions,
		cookie:   cookie,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register maneja POST /api/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	}); err != nil {
		writeServiceError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "registration successful"})
}

// Login maneja POST /api/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.userServ.Login(ctx, service.LoginInput{
		Username: req.Username,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		writeServiceError(c, h.logger, "login", err)
		return
	}

	// Una sesión previa presentada por el cliente no sobrevive al nuevo login.
	if previous, err := c.Cookie(h.cookie.Name); err == nil {
		if err := h.sessions.Destroy(ctx, previous); err != nil {
			h.logger.Warn("previous session cleanup failed", zap.Error(err))
		}
	}

	identity := user.Identity()
	value, _, err := h.sessions.CreateSession(ctx, identity)
	if err != nil {
		writeServiceError(c, h.logger, "create session", err)
		return
	}
	h.setSessionCookie(c, value, int(h.sessions.TTL().Seconds()))

	c.JSON(http.StatusOK, gin.H{"message": "login successful", "user": identity})
}

// Logout maneja POST /api/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	if value, err := c.Cookie(h.cookie.Name); err == nil {
		if err := h.sessions.Destroy(c.Request.Context(), value); err != nil {
			h.logger.Error("logout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
			return
		}
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// CurrentUser maneja GET /api/user.
func (h *UserHandler) CurrentUser(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": identity})
}

func (h *UserHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
