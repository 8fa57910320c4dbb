package engine

import (
	"context"
	"fmt"

	"taskhub/internal/activity"
	"taskhub/internal/cqrs"
	"taskhub/internal/mail"
)

// Event subscribers. These run on the event bus, so a failure here is
// logged and absorbed without failing the command that published the event.

func (e Engine) sendOTPMail(ctx context.Context, evt cqrs.Event) error {
	p, ok := evt.Payload.(UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for event %s", evt.Payload, evt.Type)
	}
	actionURL := fmt.Sprintf("%s/verify?email=%s", e.Config.Server.Origin, p.Email)
	return e.Mail.Send(ctx, mail.Message{
		From:    e.Config.Mail.From,
		To:      p.Email,
		Subject: "Verify your Taskhub account",
		HTML:    mail.OTPEmail(p.FirstName+" "+p.LastName, p.OTP, actionURL),
	})
}

func (e Engine) sendPasswordResetMail(ctx context.Context, evt cqrs.Event) error {
	p, ok := evt.Payload.(PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for event %s", evt.Payload, evt.Type)
	}
	actionURL := fmt.Sprintf("%s/reset-password?email=%s", e.Config.Server.Origin, p.Email)
	return e.Mail.Send(ctx, mail.Message{
		From:    e.Config.Mail.From,
		To:      p.Email,
		Subject: "Reset your Taskhub password",
		HTML:    mail.OTPEmail(p.FirstName+" "+p.LastName, p.OTP, actionURL),
	})
}

func (e Engine) sendInviteMail(ctx context.Context, evt cqrs.Event) error {
	p, ok := evt.Payload.(TeamInviteSentPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for event %s", evt.Payload, evt.Type)
	}
	inviteURL := fmt.Sprintf("%s/invite-signup?token=%s", e.Config.Server.Origin, p.Token)
	return e.Mail.Send(ctx, mail.Message{
		From:    e.Config.Mail.From,
		To:      p.Email,
		Subject: fmt.Sprintf("You have been invited to the %s team", p.TeamName),
		HTML:    mail.InviteEmail(p.Email, p.TeamName, p.ProjectName, p.InvitedByName, inviteURL),
	})
}

// recordActivity returns a subscriber that appends the event to the
// activity feed under the given feed type and entity kind.
func (e Engine) recordActivity(evtType, entityKind string) cqrs.EventHandler {
	return func(ctx context.Context, evt cqrs.Event) error {
		actorID, entityID, payload := activityFields(evt)
		return e.Activity.Append(ctx, evtType, actorID, entityKind, entityID, payload)
	}
}

func activityFields(evt cqrs.Event) (actorID, entityID string, payload activity.Payload) {
	switch p := evt.Payload.(type) {
	case UserRegisteredPayload:
		return p.UserID, p.UserID, activity.Payload{"email": p.Email}
	case UserVerifiedPayload:
		return p.UserID, p.UserID, activity.Payload{"email": p.Email}
	case PasswordResetRequestedPayload:
		return p.UserID, p.UserID, activity.Payload{"email": p.Email}
	case TeamInviteSentPayload:
		return evt.Meta.UserID, p.InviteID, activity.Payload{
			"email": p.Email,
			"role":  p.Role,
			"team":  p.TeamName,
		}
	default:
		return evt.Meta.UserID, "", activity.Payload{}
	}
}
