package dto

import (
	"time"

	"github.com/orientamada/orientamada/internal/domain"
)

// UserResponse is the public view of an account / Vue publique d'un compte
type UserResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Provider      string `json:"provider,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// UserToDTO converts domain.User to UserResponse / Convertit domain.User en UserResponse
func UserToDTO(user *domain.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          string(user.Role),
		AvatarURL:     user.AvatarURL,
		Provider:      user.Provider,
		EmailVerified: user.EmailVerified,
	}
}

// UsersToDTO converts a page of users / Convertit une page d'utilisateurs
func UsersToDTO(users []*domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = *UserToDTO(u)
	}
	return out
}

// SessionResponse answers login, OTP verification and refresh / Réponse de connexion et de rafraîchissement
type SessionResponse struct {
	User             *UserResponse `json:"user"`
	SessionID        string        `json:"session_id"`
	AccessExpiresAt  time.Time     `json:"access_expires_at"`
	RefreshExpiresAt time.Time     `json:"refresh_expires_at"`
}

// RegisterRequest is the sign-up body / Corps de l'inscription
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// LoginRequest is the credentials body / Corps de connexion
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// VerifyOTPRequest carries the emailed code / Porte le code reçu par email
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,max=255"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// EmailRequest is used by resend and forgot-password / Utilisé par le renvoi et le mot de passe oublié
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

// RefreshRequest carries the refresh token when no cookie is sent / Porte le refresh token sans cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResetPasswordRequest completes a password reset / Termine la réinitialisation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

// ChangePasswordRequest changes the password of the signed-in user / Change le mot de passe courant
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=72"`
}

// RoleRequest changes a user's role / Change le rôle d'un utilisateur
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

// ChatRequest is one chatbot message / Un message au chatbot
type ChatRequest struct {
	Message string `json:"message"`
}

// ReviewRequest rates an establishment / Note un établissement
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}
