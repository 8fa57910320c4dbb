package engine

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"taskhub/internal/activity"
	"taskhub/internal/authz"
	"taskhub/internal/config"
	"taskhub/internal/cqrs"
	"taskhub/internal/mail"
	"taskhub/internal/repo"
	"taskhub/internal/token"
)

// Engine is the application service. Auth flows run through the command bus
// with side effects fanned out over the event bus; project/team/task
// operations are plain methods guarded by the permission model.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Config   *config.Config
	Tokens   *token.Service
	Mail     mail.Sender
	Commands *cqrs.CommandBus
	Queries  *cqrs.QueryBus
	Events   *cqrs.EventBus
	Logger   *log.Logger
	Now      func() time.Time
}

// Deps bundles the collaborators New wires into an Engine.
type Deps struct {
	DB       *sql.DB
	Config   *config.Config
	Tokens   *token.Service
	Mail     mail.Sender
	Commands *cqrs.CommandBus
	Queries  *cqrs.QueryBus
	Events   *cqrs.EventBus
	Logger   *log.Logger
}

func New(d Deps) Engine {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return Engine{
		DB:       d.DB,
		Repo:     repo.Repo{DB: d.DB},
		Activity: activity.Writer{DB: d.DB},
		Config:   d.Config,
		Tokens:   d.Tokens,
		Mail:     d.Mail,
		Commands: d.Commands,
		Queries:  d.Queries,
		Events:   d.Events,
		Logger:   d.Logger,
		Now:      time.Now,
	}
}

// RegisterHandlers binds every command, query and event handler to the
// buses. Called once at startup by the composition root.
func (e Engine) RegisterHandlers() {
	e.Commands.Register(CommandRegisterUser, e.handleRegisterUser)
	e.Commands.Register(CommandVerifyUser, e.handleVerifyUser)
	e.Commands.Register(CommandLoginUser, e.handleLoginUser)
	e.Commands.Register(CommandResendOTP, e.handleResendOTP)
	e.Commands.Register(CommandRequestPasswordReset, e.handleRequestPasswordReset)
	e.Commands.Register(CommandUpdatePassword, e.handleUpdatePassword)
	e.Commands.Register(CommandInviteSignup, e.handleInviteSignup)

	e.Queries.Register(QueryGetUserByID, e.handleGetUserByID)

	e.Events.Subscribe(EventUserRegistered, e.sendOTPMail)
	e.Events.Subscribe(EventUserRegistered, e.recordActivity("user.registered", "user"))
	e.Events.Subscribe(EventUserVerified, e.recordActivity("user.verified", "user"))
	e.Events.Subscribe(EventPasswordResetRequested, e.sendPasswordResetMail)
	e.Events.Subscribe(EventPasswordResetRequested, e.recordActivity("user.password_reset_requested", "user"))
	e.Events.Subscribe(EventTeamInviteSent, e.sendInviteMail)
	e.Events.Subscribe(EventTeamInviteSent, e.recordActivity("team.invite_sent", "team_invite"))
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// UserContext loads the authorization identity and membership sets for a
// user. The role is the strongest team role the user holds anywhere.
func (e Engine) UserContext(ctx context.Context, userID string) (authz.UserContext, authz.Membership, error) {
	role, err := e.Repo.HighestRole(ctx, userID)
	if err != nil {
		return authz.UserContext{}, authz.Membership{}, err
	}
	teams, projects, err := e.Repo.UserMembership(ctx, userID)
	if err != nil {
		return authz.UserContext{}, authz.Membership{}, err
	}
	return authz.UserContext{ID: userID, Role: authz.Role(role)},
		authz.Membership{TeamIDs: teams, ProjectIDs: projects}, nil
}

// Domain errors surfaced to the route layer.
var (
	ErrFieldsRequired     = errors.New("all fields are required")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotVerified    = errors.New("user not verified")
	ErrUserDeactivated    = errors.New("user deactivated")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrInviteInvalid      = errors.New("invite invalid or expired")
)
