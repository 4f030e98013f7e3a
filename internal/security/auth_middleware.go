package security

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/utils"
	"breeze-gateway/pkg/response"
)

// Context keys set by RequireAuth
const (
	ClaimsKey = "user_claims"
	UserIDKey = "user_id"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	jwtManager *JWTManager
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtManager *JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth rejects requests without a valid bearer token
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := am.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireRole requires an authenticated user with role. It reuses the claims of an
// earlier RequireAuth and authenticates the request itself otherwise.
func (am *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			if claims, ok = am.authenticate(c); !ok {
				return
			}
		}

		if !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorResponse(
				utils.ErrCodeForbidden,
				"Insufficient permissions",
				"role "+role+" is required",
				middleware.GetCorrelationID(c),
			))
			return
		}
		c.Next()
	}
}

// authenticate validates the bearer token and stores its claims, aborting the request on failure
func (am *AuthMiddleware) authenticate(c *gin.Context) (*Claims, bool) {
	token, err := ExtractTokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		am.unauthorized(c, utils.ErrCodeUnauthorized, err.Error())
		return nil, false
	}

	claims, err := am.jwtManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			am.unauthorized(c, utils.ErrCodeTokenExpired, "Token expired")
			return nil, false
		}
		am.unauthorized(c, utils.ErrCodeInvalidToken, "Invalid or expired token")
		return nil, false
	}

	c.Set(ClaimsKey, claims)
	c.Set(UserIDKey, claims.UserID)
	return claims, true
}

func (am *AuthMiddleware) unauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse(
		code, message, "", middleware.GetCorrelationID(c),
	))
}

// GetClaims returns the claims stored by RequireAuth
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
