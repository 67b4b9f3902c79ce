package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/assert"
	"github.com/quantrack/quantrack/internal/auth"
	"github.com/quantrack/quantrack/internal/models"
)

const passwordResetTTL = time.Hour

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the signup payload for either role
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"max=150"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Role            string `json:"role" binding:"required,oneof=volunteer admin"`

	DateOfBirth          string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	SchoolOrOrganization string `json:"school_or_organization" binding:"max=100"`

	OrganizationID      uint   `json:"organization_id"`
	OrganizationName    string `json:"organization_name" binding:"max=100"`
	DateOfEstablishment string `json:"date_of_establishment" binding:"omitempty,datetime=2006-01-02"`
	RegistrationNumber  string `json:"registration_number"`
	OrganizationType    string `json:"organization_type"`
	Website             string `json:"website" binding:"omitempty,url"`
	Description         string `json:"description" binding:"max=500"`
	Address             string `json:"address"`
	City                string `json:"city"`
	Country             string `json:"country"`
	PhoneNumber         string `json:"phone_number" binding:"max=15"`
	JobTitle            string `json:"job_title" binding:"max=100"`
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordResetConfirmRequest struct {
	UIDB64   string `json:"uidb64" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

var errBadRegistration = errors.New("bad registration")

// login checks credentials and issues tokens both as cookies and in the body
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		if !isNotFound(err) {
			s.internalError(c, err, "Failed to load user")
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No active account found with the given credentials"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No active account found with the given credentials"})
		return
	}

	access, refresh, err := auth.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.setAuthCookies(c, access, refresh)

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User logged in")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   access,
		"access":  access,
		"refresh": refresh,
		"user":    newUserDetail(user),
	})
}

// refreshToken issues a new access token from the refresh cookie or body
func (s *Server) refreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		token = req.Refresh
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not provided"})
		return
	}

	claims, err := auth.ValidateTokenType(token, auth.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
		return
	}

	access, err := auth.GenerateToken(claims.UserID, claims.Email, claims.Role, auth.TokenAccess)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.setAuthCookies(c, access, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "access": access})
}

// whoAmI reports the authenticated user and role
func (s *Server) whoAmI(c *gin.Context) {
	session, _ := GetSessionData(c)

	var user models.User
	if err := models.FindByID(s.db, session.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": newUserDetail(user)})
}

func (s *Server) logout(c *gin.Context) {
	s.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// register creates a user and its role profile. Admins either attach to an
// existing organization or create a new one in the same transaction.
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}
	if req.Role == models.RoleAdmin && req.OrganizationID == 0 && req.OrganizationName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admins must provide organization_id or organization_name"})
		return
	}

	email := strings.ToLower(req.Email)

	var existing int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		s.internalError(c, err, "Failed to check email")
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that email already exists."})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	code, err := verificationCode()
	if err != nil {
		s.internalError(c, err, "Failed to generate verification code")
		return
	}

	username := req.Username
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	user := models.User{
		Email:            email,
		Username:         username,
		PasswordHash:     passwordHash,
		Role:             req.Role,
		VerificationCode: code,
	}

	var profileID string
	var badRequest string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if req.Role == models.RoleVolunteer {
			profile := models.VolunteerProfile{
				UserID:               user.ID,
				DateOfBirth:          req.DateOfBirth,
				SchoolOrOrganization: req.SchoolOrOrganization,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			profileID = profile.ID
			return nil
		}

		orgID := req.OrganizationID
		if orgID != 0 {
			var org models.Organization
			if err := models.FindByID(tx, orgID, &org); err != nil {
				if isNotFound(err) {
					badRequest = "Organization not found"
					return errBadRegistration
				}
				return err
			}
		} else {
			org := models.Organization{
				Name:                req.OrganizationName,
				DateOfEstablishment: req.DateOfEstablishment,
				RegistrationNumber:  req.RegistrationNumber,
				OrganizationType:    req.OrganizationType,
				Website:             req.Website,
				Description:         req.Description,
				Address:             req.Address,
				City:                req.City,
				Country:             req.Country,
			}
			if org.OrganizationType == "" {
				org.OrganizationType = "Non-profit"
			}
			if org.DateOfEstablishment == "" {
				org.DateOfEstablishment = s.today()
			}
			if err := tx.Create(&org).Error; err != nil {
				return err
			}
			orgID = org.ID
		}

		profile := models.AdminProfile{
			UserID:         user.ID,
			OrganizationID: orgID,
			JobTitle:       req.JobTitle,
			PhoneNumber:    req.PhoneNumber,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		profileID = profile.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, errBadRegistration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badRequest})
			return
		}
		s.internalError(c, err, "Failed to create user")
		return
	}

	s.sendVerificationCode(c, user, code)

	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"role":       user.Role,
		"is_active":  user.EmailVerified,
		"profile_id": profileID,
	})
}

// verifyEmail activates the account that was issued the code
func (s *Server) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := s.db.Where("verification_code = ? AND email_verified = ?", strings.TrimSpace(req.Code), false).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code"})
			return
		}
		s.internalError(c, err, "Failed to verify email")
		return
	}

	if err := s.db.Model(&user).Updates(map[string]any{"email_verified": true, "verification_code": ""}).Error; err != nil {
		s.internalError(c, err, "Failed to verify email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified successfully"})
}

func (s *Server) resendVerificationCode(c *gin.Context) {
	session, _ := GetSessionData(c)

	var user models.User
	if err := models.FindByID(s.db, session.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to load user")
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already verified"})
		return
	}

	code, err := verificationCode()
	if err != nil {
		s.internalError(c, err, "Failed to generate verification code")
		return
	}
	if err := s.db.Model(&user).Update("verification_code", code).Error; err != nil {
		s.internalError(c, err, "Failed to store verification code")
		return
	}

	s.sendVerificationCode(c, user, code)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification code sent"})
}

// requestPasswordReset answers the same way whether or not the email exists
func (s *Server) requestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error
	switch {
	case err == nil:
		token, err := randomHex(20)
		if err != nil {
			s.internalError(c, err, "Failed to generate reset token")
			return
		}
		reset := models.PasswordReset{UserID: user.ID, Token: token, ExpiresAt: s.now().Add(passwordResetTTL)}
		if err := s.db.Create(&reset).Error; err != nil {
			s.internalError(c, err, "Failed to store reset token")
			return
		}
		if err := s.mailer.SendPasswordReset(c.Request.Context(), user.Email, encodeUID(user.ID), token); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to send password reset mail")
		}
	case !isNotFound(err):
		s.internalError(c, err, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the email exists, a reset link has been sent."})
}

func (s *Server) confirmPasswordReset(c *gin.Context) {
	var req passwordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := decodeUID(req.UIDB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reset link"})
		return
	}

	var reset models.PasswordReset
	err = s.db.Where("user_id = ? AND token = ? AND used_at IS NULL", userID, req.Token).First(&reset).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reset link"})
			return
		}
		s.internalError(c, err, "Failed to load reset token")
		return
	}
	now := s.now()
	if now.After(reset.ExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset link has expired"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", passwordHash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used_at", now).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset"})
}

// sendVerificationCode mails the code; a delivery failure leaves the code
// stored so resend can try again
func (s *Server) sendVerificationCode(c *gin.Context, user models.User, code string) {
	if err := s.mailer.SendVerificationCode(c.Request.Context(), user.Email, code); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to send verification code")
	}
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	assert.Length(code, 6)
	return code, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func encodeUID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeUID(uidb64 string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
