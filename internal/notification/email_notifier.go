package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/config"
	"github.com/stanstork/agri-notify/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier escalates shown alerts at or above a priority to a mailbox,
// e.g. livestock health alerts to the farm manager.
type EmailNotifier struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	recipients  []string
	minPriority models.NotificationPriority
	sendMail    sendMailFunc
	logger      zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	minPriority := models.PriorityUrgent
	if strings.TrimSpace(cfg.MinPriority) != "" {
		minPriority = models.ParsePriority(cfg.MinPriority)
	}

	return &EmailNotifier{
		host:        host,
		port:        port,
		username:    strings.TrimSpace(cfg.Username),
		password:    cfg.Password,
		from:        from,
		recipients:  sanitizeRecipients(cfg.Recipients),
		minPriority: minPriority,
		sendMail:    smtp.SendMail,
		logger:      logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, d Dispatch) error {
	if len(n.recipients) == 0 || !d.Decision.ShowAlert || d.Record.Priority < n.minPriority {
		return nil
	}
	rec := d.Record

	subject := fmt.Sprintf("[Farm alert] %s", strings.TrimSpace(rec.Title))

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(rec.Body))
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Category: %s\n", rec.Category))
	body.WriteString(fmt.Sprintf("Priority: %s\n", rec.Priority))
	body.WriteString(fmt.Sprintf("Device: %s\n", d.DeviceID))
	body.WriteString(fmt.Sprintf("Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	if rec.DeepLink != "" {
		body.WriteString(fmt.Sprintf("Open: %s\n", rec.DeepLink))
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.from, strings.Join(n.recipients, ","), subject)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.sendMail(addr, auth, n.from, n.recipients, []byte(headers+body.String())); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", rec.ID).
		Str("priority", rec.Priority.String()).
		Strs("recipients", n.recipients).
		Msg("escalation email sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
