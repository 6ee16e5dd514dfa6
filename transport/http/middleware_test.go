package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/service"
)

// stubTokenizer maps one fixed token to one session reference.
type stubTokenizer struct {
	token      string
	sessionID  string
	cardSerial string
}

func (s *stubTokenizer) SessionToToken(session *core.CardSession) (string, error) {
	return s.token, nil
}

func (s *stubTokenizer) TokenToSessionRef(token string) (string, string, error) {
	if token != s.token {
		return "", "", core.ErrInvalidToken
	}
	return s.sessionID, s.cardSerial, nil
}

func sessionTestRouter(tokenizer *stubTokenizer, sessions *service.SessionRegistry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", SessionMiddleware(tokenizer, sessions), func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"card_serial": session.CardSerial})
	})
	return r
}

func TestSessionMiddlewareResolvesSession(t *testing.T) {
	sessions := service.NewSessionRegistry(5 * time.Minute)
	session := sessions.Create("00A1B2C3", "123456")
	tokenizer := &stubTokenizer{token: "tok", sessionID: session.ID, cardSerial: session.CardSerial}

	r := sessionTestRouter(tokenizer, sessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "00A1B2C3")
}

func TestSessionMiddlewareRejects(t *testing.T) {
	sessions := service.NewSessionRegistry(5 * time.Minute)
	session := sessions.Create("00A1B2C3", "123456")
	tokenizer := &stubTokenizer{token: "tok", sessionID: session.ID, cardSerial: session.CardSerial}

	r := sessionTestRouter(tokenizer, sessions)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic tok"},
		{"unknown token", "Bearer other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestSessionMiddlewareRejectsCancelledSession(t *testing.T) {
	sessions := service.NewSessionRegistry(5 * time.Minute)
	session := sessions.Create("00A1B2C3", "123456")
	tokenizer := &stubTokenizer{token: "tok", sessionID: session.ID, cardSerial: session.CardSerial}
	sessions.Cancel(session.ID)

	r := sessionTestRouter(tokenizer, sessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
