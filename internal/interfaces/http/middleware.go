package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

const contextKeyActor = "actor"

// AuthMiddleware resolves the bearer token to the acting user
type AuthMiddleware struct {
	tokens TokenVerifier
	users  port.UserRepository
	logger Logger
}

// NewAuthMiddleware creates the bearer auth middleware
func NewAuthMiddleware(tokens TokenVerifier, users port.UserRepository, logger Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// RequireAuth rejects requests without a valid token for an existing user.
// The role comes from the stored user, not the token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Missing authorization token")
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			m.logger.Info("Rejected bearer token", "error", err)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			m.logger.Error("Failed to load token user", "user_id", claims.UserID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Message: "Failed to authenticate request",
			})
			return
		}
		if user == nil {
			abortUnauthorized(c, "User not found")
			return
		}

		c.Set(contextKeyActor, user)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter which EventSource clients need.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("access_token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Message: message,
	})
}

func actorFrom(c *gin.Context) *entity.User {
	v, ok := c.Get(contextKeyActor)
	if !ok {
		return nil
	}
	user, _ := v.(*entity.User)
	return user
}

func requestMeta(c *gin.Context) entity.RequestMeta {
	return entity.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
