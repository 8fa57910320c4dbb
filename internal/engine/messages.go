package engine

// Message type tags shared between producers (routes) and the bus
// registries. The set is closed: adding a command means adding a constant
// here and registering its handler in RegisterHandlers.
const (
	CommandRegisterUser         = "REGISTER_USER"
	CommandVerifyUser           = "VERIFY_USER"
	CommandLoginUser            = "LOGIN_USER"
	CommandResendOTP            = "RESEND_OTP"
	CommandRequestPasswordReset = "REQUEST_PASSWORD_RESET"
	CommandUpdatePassword       = "UPDATE_PASSWORD"
	CommandInviteSignup         = "INVITE_SIGNUP"

	QueryGetUserByID = "GET_USER_BY_ID"

	EventUserRegistered         = "USER_REGISTERED"
	EventUserVerified           = "USER_VERIFIED"
	EventPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	EventTeamInviteSent         = "TEAM_INVITE_SENT"
)

// Command payloads.

type RegisterUserPayload struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

type VerifyUserPayload struct {
	Email string
	OTP   string
}

type LoginUserPayload struct {
	Email    string
	Password string
}

type ResendOTPPayload struct {
	Email string
}

type RequestPasswordResetPayload struct {
	Email string
}

type UpdatePasswordPayload struct {
	Email       string
	OTP         string
	NewPassword string
}

type InviteSignupPayload struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Token     string
}

// Query payloads.

type GetUserByIDPayload struct {
	UserID string
}

// Event payloads.

type UserRegisteredPayload struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	OTP       string
	ExpiresAt string
}

type UserVerifiedPayload struct {
	UserID string
	Email  string
}

type PasswordResetRequestedPayload struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	OTP       string
	ExpiresAt string
}

type TeamInviteSentPayload struct {
	InviteID      string
	Email         string
	Role          string
	Token         string
	TeamName      string
	ProjectName   string
	InvitedByName string
	ExpiresAt     string
}
