package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/pkg/ctxmanage"
	"checkout-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader   = "X-Request-ID"
	accessTokenCookie = "access_token"
)

// TokenValidator is satisfied by *auth.Keys.
type TokenValidator interface {
	ValidateToken(token string) (auth.Claims, error)
}

// TraceLogger gives every request a trace id and logs it when done.
func TraceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(requestIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(ctxmanage.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctxmanage.WithTraceID(c.Request.Context(), traceID))
		c.Header(requestIDHeader, traceID)

		start := time.Now()
		c.Next()

		slog.Info("request",
			slog.String(logkey.Component, "http"),
			slog.String(logkey.TraceID, traceID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// Authenticate accepts a bearer token or the access_token cookie.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(accessTokenCookie)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := v.ValidateToken(token)
		if err != nil {
			slog.Warn("rejected token", slog.String(logkey.TraceID, traceID), slog.String(logkey.Error, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
