package mail

import (
	"fmt"
	"html"
	"time"
)

// OTPEmail renders the verification / password-reset code email.
func OTPEmail(fullName, otp, actionURL string) string {
	return fmt.Sprintf(`<html><body style="font-family:sans-serif">
<h2>Taskhub</h2>
<p>Hi %s,</p>
<p>Your one-time code is:</p>
<p style="font-size:28px;letter-spacing:4px"><strong>%s</strong></p>
<p>The code expires in a few minutes. You can also continue here:
<a href="%s">%s</a></p>
<p style="color:#888">&copy; %d Taskhub</p>
</body></html>`,
		html.EscapeString(fullName), html.EscapeString(otp),
		html.EscapeString(actionURL), html.EscapeString(actionURL),
		time.Now().Year())
}

// InviteEmail renders the team invitation email.
func InviteEmail(recipient, teamName, projectName, invitedBy, inviteURL string) string {
	return fmt.Sprintf(`<html><body style="font-family:sans-serif">
<h2>Taskhub</h2>
<p>Hi %s,</p>
<p>%s invited you to join the <strong>%s</strong> team on the
<strong>%s</strong> project.</p>
<p><a href="%s">Accept invitation</a></p>
<p>If you were not expecting this, you can ignore this email.</p>
<p style="color:#888">&copy; %d Taskhub</p>
</body></html>`,
		html.EscapeString(recipient), html.EscapeString(invitedBy),
		html.EscapeString(teamName), html.EscapeString(projectName),
		html.EscapeString(inviteURL), time.Now().Year())
}
