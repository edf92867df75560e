package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// OwnerKey ключ контекста с владельцем API ключа
	OwnerKey = "owner"

	defaultAPIKeyHeader = "X-API-Key"
)

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// Keys карта API ключ -> владелец ссылок
	Keys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
	// Admins владельцы, которым разрешено менять глобальные настройки
	Admins []string
}

// APIKey authenticates registered users. The owner name attached to the key
// becomes the owner of every link created with it.
type APIKey struct {
	config APIKeyConfig
}

// NewAPIKey создаёт новый API key middleware
func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = defaultAPIKeyHeader
	}
	return &APIKey{config: config}
}

// Middleware возвращает Gin middleware handler для API key аутентификации
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ak.config.HeaderName)

		// Также проверяем заголовок Authorization с Bearer схемой
		if apiKey == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}

		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		owner, ok := ak.lookup(apiKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set(OwnerKey, owner)
		c.Next()
	}
}

// RequireAdmin пропускает только владельцев из Admins. Ставится после Middleware
func (ak *APIKey) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := OwnerFromContext(c)
		if !ok || !ak.isAdmin(owner) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

func (ak *APIKey) isAdmin(owner string) bool {
	for _, admin := range ak.config.Admins {
		if admin == owner {
			return true
		}
	}
	return false
}

// lookup сравнивает со всеми ключами за constant time
func (ak *APIKey) lookup(apiKey string) (string, bool) {
	var owner string
	found := false
	for key, name := range ak.config.Keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			owner = name
			found = true
		}
	}
	return owner, found
}

// OwnerFromContext возвращает владельца, установленного APIKey
func OwnerFromContext(c *gin.Context) (string, bool) {
	owner := c.GetString(OwnerKey)
	return owner, owner != ""
}
