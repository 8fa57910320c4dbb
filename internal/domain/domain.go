package domain

type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email" format:"email"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	PasswordHash string  `json:"-"`
	Avatar       *string `json:"avatar,omitempty"`
	IsVerified   bool    `json:"is_verified"`
	IsActive     bool    `json:"is_active"`
	OTP          *string `json:"-"`
	OTPExpiresAt *string `json:"-"`
	RefreshToken *string `json:"-"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"ACTIVE,ARCHIVED,COMPLETED,ON_HOLD"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Team struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type TeamMember struct {
	TeamID   string `json:"team_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role" enum:"ADMIN,MANAGER,MEMBER"`
	JoinedAt string `json:"joined_at" format:"date-time"`
}

type TeamInvite struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Email     string `json:"email" format:"email"`
	Role      string `json:"role" enum:"ADMIN,MANAGER,MEMBER"`
	Status    string `json:"status" enum:"PENDING,ACCEPTED,DECLINED"`
	Token     string `json:"-"`
	InvitedBy string `json:"invited_by"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	TeamID      *string `json:"team_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status" enum:"TODO,IN_PROGRESS,REVIEW,DONE,BLOCKED"`
	Priority    string  `json:"priority" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// Activity is one row of the persisted event feed.
type Activity struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ActorID    string `json:"actor_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
