package internal

import (
	"fmt"

	"filedrawer.app/web/internal/database"
	"github.com/wneessen/go-mail"
)

// Notifier is told about account events. Delivery failures are the caller's
// to log, they never fail the request.
type Notifier interface {
	AccountCreated(user *database.DBUser) error
}

// MailNotifier sends plain-text notices to an administrator through sendmail.
type MailNotifier struct {
	From string
	To   string
	send func(*mail.Msg) error
}

func NewMailNotifier(from, to string) *MailNotifier {
	return &MailNotifier{
		From: from,
		To:   to,
		send: func(m *mail.Msg) error { return m.WriteToSendmail() },
	}
}

func (n *MailNotifier) AccountCreated(user *database.DBUser) error {
	msg, err := n.accountCreatedMsg(user)
	if err != nil {
		return err
	}
	if err := n.send(msg); err != nil {
		return fmt.Errorf("sendmail err: %w", err)
	}
	return nil
}

func (n *MailNotifier) accountCreatedMsg(user *database.DBUser) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.From); err != nil {
		return nil, fmt.Errorf("invalid from email address '%s': %w", n.From, err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("invalid to email address '%s': %w", n.To, err)
	}
	msg.Subject("New account: " + user.Username)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"A new account was registered.\n\nUsername: %s\nName: %s %s\nCreated: %s\n",
		user.Username, user.FirstName, user.LastName, user.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	))
	return msg, nil
}
