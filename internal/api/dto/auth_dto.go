package dto

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/blog-service/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Password bounds. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// RegisterRequest payload for new identities.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks field constraints.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required,
			validation.RuneLength(3, 30).Error("username must be between 3 and 30 characters"),
			validation.Match(usernamePattern).Error("username can only contain letters, numbers, and underscores"),
		),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
		validation.Field(&r.FirstName, validation.RuneLength(0, 50)),
		validation.Field(&r.LastName, validation.RuneLength(0, 50)),
	)
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks field constraints.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ProfileRequest payload for profile updates. Absent fields stay unchanged.
type ProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Avatar    *string `json:"avatar"`
}

// Validate checks field constraints.
func (r ProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.RuneLength(0, 50)),
		validation.Field(&r.LastName, validation.RuneLength(0, 50)),
		validation.Field(&r.Bio, validation.RuneLength(0, 500)),
		validation.Field(&r.Avatar, validation.RuneLength(0, 2048), is.URL),
	)
}

// ChangePasswordRequest payload for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate checks field constraints.
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
	)
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Identity  domain.PublicIdentity `json:"identity"`
}

// NewAuthResponse builds the response body. The password hash never leaves
// the server.
func NewAuthResponse(identity *domain.Identity, token string, exp time.Time) AuthResponse {
	return AuthResponse{Token: token, ExpiresAt: exp, Identity: identity.Public()}
}

// Trim removes surrounding whitespace from identifying fields before
// validation. Passwords are left untouched.
func (r *RegisterRequest) Trim() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// Trim removes surrounding whitespace from the email.
func (r *LoginRequest) Trim() {
	r.Email = strings.TrimSpace(r.Email)
}
