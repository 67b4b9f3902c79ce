package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/auth"
	"github.com/quantrack/quantrack/internal/models"
)

const (
	bearerPrefix = "Bearer "

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidAuthFormat  = errors.New("invalid authorization header format")
	ErrEmptyToken         = errors.New("empty token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingCredentials
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// extractToken reads the bearer header first and falls back to the access
// cookie set at login.
func extractToken(c *gin.Context) (token, method string, err error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, err = extractBearerToken(header)
		return token, "bearer", err
	}

	if cookie, cerr := c.Cookie(accessCookie); cerr == nil && cookie != "" {
		return cookie, "cookie", nil
	}

	return "", "", ErrMissingCredentials
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// JWTAuthMiddleware authenticates requests by bearer token or access cookie
func JWTAuthMiddleware(db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method, err := extractToken(c)
		if err != nil {
			var message string
			switch err {
			case ErrMissingCredentials:
				message = "Authentication credentials were not provided."
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := auth.ValidateTokenType(token, auth.TokenAccess)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to validate JWT token")
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Given token not valid for any token type")
			return
		}

		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			log.Error().Err(err).Str("user_id", claims.UserID).Msg("User not found")
			respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Email:      user.Email,
			Role:       user.Role,
			AuthMethod: method,
		})

		c.Next()
	}
}

// RoleMiddleware ensures the authenticated user has the given role
func RoleMiddleware(role string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if sessionData.Role != role {
			respondWithError(c, log, http.StatusForbidden, errors.New("wrong role"),
				"You do not have permission to perform this action.")
			return
		}

		c.Next()
	}
}

// setAuthCookies stores the token pair as HttpOnly cookies
func (s *Server) setAuthCookies(c *gin.Context, access, refresh string) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, access, int(auth.AccessTokenTTL.Seconds()), "/", "", secure, true)
	if refresh != "" {
		c.SetCookie(refreshCookie, refresh, int(auth.RefreshTokenTTL.Seconds()), "/", "", secure, true)
	}
}

func (s *Server) clearAuthCookies(c *gin.Context) {
	secure := c.Request.TLS != nil
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", secure, true)
}

// internalError logs err and answers 500
func (s *Server) internalError(c *gin.Context, err error, message string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
