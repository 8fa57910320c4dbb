package server

import (
	"taskhub/internal/domain"
)

// Request payloads

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email" format:"email"`
	Password  string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email" format:"email"`
	OTP   string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type ResendOTPRequest struct {
	Email string `json:"email" format:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" format:"email"`
}

type UpdatePasswordRequest struct {
	Email       string `json:"email" format:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type InviteSignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Token     string `json:"token"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	Name        string  `json:"name,omitempty"`
	Status      string  `json:"status,omitempty" enum:"ACTIVE,ARCHIVED,COMPLETED,ON_HOLD"`
	Description *string `json:"description,omitempty"`
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateTeamRequest struct {
	Name        string  `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateInviteRequest struct {
	Email string `json:"email" format:"email"`
	Role  string `json:"role,omitempty" enum:"ADMIN,MANAGER,MEMBER"`
}

type CreateTaskRequest struct {
	ProjectID   string  `json:"project_id"`
	TeamID      *string `json:"team_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"TODO,IN_PROGRESS,REVIEW,DONE,BLOCKED"`
	Priority    string  `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

type UpdateTaskRequest struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"TODO,IN_PROGRESS,REVIEW,DONE,BLOCKED"`
	Priority    string  `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	TeamID      *string `json:"team_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

// Response payloads

type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email" format:"email"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	IsVerified bool   `json:"is_verified"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type SessionResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

type InviteResponse struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Email     string `json:"email" format:"email"`
	Role      string `json:"role" enum:"ADMIN,MANAGER,MEMBER"`
	Status    string `json:"status" enum:"PENDING,ACCEPTED,DECLINED"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func inviteResponse(inv domain.TeamInvite) InviteResponse {
	return InviteResponse{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func mapInvites(items []domain.TeamInvite) []InviteResponse {
	out := make([]InviteResponse, 0, len(items))
	for _, inv := range items {
		out = append(out, inviteResponse(inv))
	}
	return out
}
