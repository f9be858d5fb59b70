// Package email sends check-in reminder mail over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// SendHTMLEmail sends a multipart/alternative message with a plain text part.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	boundary := "boundary-pathwise"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.fromHeader())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type ReminderGoal struct {
	Title         string
	Progress      int
	NextObjective string
}

type ReminderData struct {
	AppName  string
	Interval string
	DueAt    string
	Goals    []ReminderGoal
}

// SendCheckinReminder mails a single user their check-in reminder.
func (s *Service) SendCheckinReminder(to string, data ReminderData) error {
	if data.AppName == "" {
		data.AppName = "Pathwise"
	}
	subject := fmt.Sprintf("Time for your %s check-in", data.Interval)
	html, err := renderTemplate(reminderTemplate, data)
	if err != nil {
		return fmt.Errorf("render reminder template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, subject, reminderText(data), html)
}

func reminderText(data ReminderData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s check-in with %s is due (%s).\r\n", data.Interval, data.AppName, data.DueAt)
	for _, g := range data.Goals {
		fmt.Fprintf(&b, "- %s: %d%% done, next up: %s\r\n", g.Title, g.Progress, g.NextObjective)
	}
	b.WriteString("Record how it went: mood, notes and progress.")
	return b.String()
}

var reminderTemplate = template.Must(template.New("reminder").Parse(reminderEmailTemplate))

func renderTemplate(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reminderEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your {{.AppName}} check-in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #2f855a; padding-bottom: 10px; margin-bottom: 20px; }
        .goal { padding: 10px 0; border-bottom: 1px solid #eee; }
        .bar { background: #edf2f7; border-radius: 4px; height: 8px; }
        .fill { background: #2f855a; border-radius: 4px; height: 8px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Your {{.Interval}} check-in is due</h2>
    <p>Scheduled for {{.DueAt}}. Take two minutes to record your mood, notes and progress.</p>
    {{range .Goals}}
    <div class="goal">
        <strong>{{.Title}}</strong> &middot; {{.Progress}}% complete
        <div class="bar"><div class="fill" style="width: {{.Progress}}%"></div></div>
        <p>Next up: {{.NextObjective}}</p>
    </div>
    {{end}}
    <div class="footer">
        <p>You can turn reminders off from your check-in settings.</p>
    </div>
</body>
</html>`
