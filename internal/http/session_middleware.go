package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support-desk/internal/domain"
	"support-desk/internal/service"
)

const (
	identityKey    = "session_identity"
	adminKey       = "admin_authorized"
	AdminKeyHeader = "X-Admin-Key"
)

// SessionMiddleware resuelve la cookie de sesión y, si es válida, guarda la identidad en el contexto.
// Nunca rechaza la request: una cookie ausente o inválida equivale a no tener sesión.
func SessionMiddleware(sessions *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions != nil {
			if value, err := c.Cookie(cookieName); err == nil {
				if identity, ok := sessions.Resolve(c.Request.Context(), value); ok {
					c.Set(identityKey, identity)
				}
			}
		}
		c.Next()
	}
}

// RequireSession corta con 401 cuando la request no trae una sesión válida.
func RequireSession(sessions *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
			return
		}
		if _, ok := GetIdentity(c); ok {
			c.Next()
			return
		}
		value, _ := c.Cookie(cookieName)
		identity, err := sessions.RequireAuthenticated(c.Request.Context(), value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// AdminKeyMiddleware marca la request como administrativa si trae la clave correcta.
// Con key vacía no marca ninguna.
func AdminKeyMiddleware(key string) gin.HandlerFunc {
	expected := []byte(key)
	return func(c *gin.Context) {
		if len(expected) > 0 {
			given := []byte(strings.TrimSpace(c.GetHeader(AdminKeyHeader)))
			if subtle.ConstantTimeCompare(given, expected) == 1 {
				c.Set(adminKey, true)
			}
		}
		c.Next()
	}
}

// GetIdentity obtiene la identidad de sesión desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

func viewerFrom(c *gin.Context) service.Viewer {
	var viewer service.Viewer
	if identity, ok := GetIdentity(c); ok {
		viewer.Identity = &identity
	}
	viewer.Admin = c.GetBool(adminKey)
	return viewer
}
