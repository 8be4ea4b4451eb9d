package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const ctxUserID = "fishlog.userID"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Info("request")
		}
	}
}

// requireUser resolves the acting user from the session token and aborts
// with 401 when none resolves. Identity always comes from the session,
// never from client-supplied parameters.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		userID, err := h.users.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(statusForError(err), gin.H{"error": errorMessage(err)})
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func authedUser(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// actingUser returns the session user. Legacy clients still send a userId
// parameter; when present it has to match the session user, otherwise the
// request is rejected rather than trusted.
func (h *Handler) actingUser(c *gin.Context, claimed string) (int64, bool) {
	userID := authedUser(c)
	if claimed == "" {
		return userID, true
	}

	claimedID, err := strconv.ParseInt(claimed, 10, 64)
	if err != nil || claimedID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return 0, false
	}
	if claimedID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match session"})
		return 0, false
	}
	return userID, true
}
