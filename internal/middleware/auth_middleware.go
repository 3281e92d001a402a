package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/auth"
	"github.com/gin-gonic/gin"
)

// Context keys and headers used by the auth middleware
const (
	ContextUserID     = "userID"
	ContextServiceKey = "serviceKey"

	HeaderOnBehalfOf = "X-On-Behalf-Of"
	HeaderServiceKey = "X-Service-Key"
)

// AdminChecker reports whether a user is an administrator
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AuthMiddleware resolves the requesting user and guards admin routes
type AuthMiddleware struct {
	jwtService      *auth.JWTService
	serviceKeys     *auth.ServiceKeyVerifier
	admins          AdminChecker
	trustOnBehalfOf bool
}

// NewAuthMiddleware creates a new AuthMiddleware. With trustOnBehalfOf set, the
// X-On-Behalf-Of header of a trusted gateway is accepted in place of a token.
func NewAuthMiddleware(jwtService *auth.JWTService, serviceKeys *auth.ServiceKeyVerifier, admins AdminChecker, trustOnBehalfOf bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:      jwtService,
		serviceKeys:     serviceKeys,
		admins:          admins,
		trustOnBehalfOf: trustOnBehalfOf,
	}
}

// UserID returns the requesting user set by JWTAuth
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// JWTAuth resolves the requesting user id into the context
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.resolveUser(c) {
			return
		}
		c.Next()
	}
}

// AdminRequired must run after JWTAuth
func (m *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.requireAdmin(c) {
			return
		}
		c.Next()
	}
}

// ServiceKeyOrAdmin lets the ETL scheduler in with its service key; everyone
// else must be an authenticated admin
func (m *AuthMiddleware) ServiceKeyOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(HeaderServiceKey); key != "" {
			if err := m.serviceKeys.Verify(key); err != nil {
				errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidKey, "Authentication failed")
				errorDetail = errorDetail.WithDetails("Invalid service key")
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
				return
			}
			c.Set(ContextServiceKey, true)
			c.Next()
			return
		}

		if !m.resolveUser(c) || !m.requireAdmin(c) {
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) resolveUser(c *gin.Context) bool {
	if m.trustOnBehalfOf {
		if userID := strings.TrimSpace(c.GetHeader(HeaderOnBehalfOf)); userID != "" {
			c.Set(ContextUserID, userID)
			return true
		}
	}

	authHeader := c.GetHeader("Authorization")
	// Browsers cannot set headers on a websocket upgrade
	if authHeader == "" {
		authHeader = c.Query("token")
	}
	if authHeader == "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeMissingUserID, apperrors.MsgNoUserID)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}

	tokenString, err := auth.ExtractBearerToken(authHeader)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Authentication failed")
		errorDetail = errorDetail.WithDetails("Invalid token format")
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return false
	}

	claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
	if err != nil {
		errorCode := dto.ErrorCodeInvalidToken
		errorDetails := "Invalid token"
		if errors.Is(err, auth.ErrExpiredToken) {
			errorCode = dto.ErrorCodeExpiredToken
			errorDetails = "Token has expired"
		}

		errorDetail := dto.NewErrorDetail(errorCode, "Authentication failed")
		errorDetail = errorDetail.WithDetails(errorDetails)
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	return true
}

func (m *AuthMiddleware) requireAdmin(c *gin.Context) bool {
	admin, err := m.admins.IsAdmin(c.Request.Context(), UserID(c))
	if err != nil {
		HandleAPIError(c, err)
		c.Abort()
		return false
	}
	if !admin {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied")
		errorDetail = errorDetail.WithDetails("Only administrators can perform this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
		return false
	}
	return true
}
