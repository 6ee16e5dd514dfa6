package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
	"github.com/KMA-JAVA-CARD/cardpoint/service"
)

const sessionKey = "cardSession"

// SessionMiddleware validates the Bearer session token and resolves the live
// card session it references. Requests with abandoned or expired sessions are
// rejected; the caller restarts from authentication.
func SessionMiddleware(tokenizer ports.SessionTokenizer, sessions *service.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		sessionID, _, err := tokenizer.TokenToSessionRef(auth[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session token"})
			return
		}

		session, err := sessions.Resolve(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// sessionFromContext returns the session placed by SessionMiddleware.
func sessionFromContext(c *gin.Context) (*core.CardSession, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*core.CardSession)
	return session, ok
}
