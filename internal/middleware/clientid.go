package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ClientIDHeader = "X-Client-ID"
	// ClientIDKey ключ контекста с идентификатором анонимного клиента
	ClientIDKey = "client_id"
)

// ClientID identifies anonymous browsers. A missing or malformed X-Client-ID
// gets a fresh UUID; the id in use is always echoed back so the client can keep it.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(ClientIDHeader))
		if err != nil {
			id = uuid.New()
		}

		clientID := id.String()
		c.Set(ClientIDKey, clientID)
		c.Header(ClientIDHeader, clientID)
		c.Next()
	}
}

func ClientIDFromContext(c *gin.Context) string {
	return c.GetString(ClientIDKey)
}
