// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/models"
)

// Mailer delivers one rendered message.
type Mailer interface {
	Send(to []string, subject, body string) error
}

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
	mailer Mailer
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	var mailer Mailer = logMailer{}
	if cfg.Email.SMTPHost != "" {
		mailer = &smtpMailer{cfg: cfg.Email}
	}
	return NewNotificationServiceWithMailer(db, cfg, mailer)
}

func NewNotificationServiceWithMailer(db *gorm.DB, cfg *config.Config, mailer Mailer) *NotificationService {
	return &NotificationService{db: db, config: cfg, mailer: mailer}
}

// Signing notifications
func (s *NotificationService) SendSigningLink(contract *models.Contract, token *models.SigningToken, url string) error {
	data := map[string]interface{}{
		"SignerName":    token.SignerName,
		"ContractTitle": contract.Title,
		"Role":          strings.ToLower(string(token.Role)),
		"SigningURL":    url,
		"ExpiresAt":     token.ExpiresAt.Format(time.RFC1123),
	}
	return s.send("signing_link", []string{token.SignerEmail}, data)
}

func (s *NotificationService) SendContractExecuted(contract *models.Contract, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	data := map[string]interface{}{
		"ContractTitle": contract.Title,
		"ContractURL":   fmt.Sprintf("%s/contracts/%s", s.config.Frontend.BaseURL, contract.ID),
	}
	return s.send("contract_executed", recipients, data)
}

// Early-access notifications
func (s *NotificationService) SendEarlyAccessApproved(user *models.User, role models.UserRole, feedback *string) error {
	data := map[string]interface{}{
		"Username":     user.Username,
		"Role":         string(role),
		"Feedback":     deref(feedback),
		"DashboardURL": fmt.Sprintf("%s/dashboard", s.config.Frontend.BaseURL),
	}
	return s.send("early_access_approved", []string{user.Email}, data)
}

func (s *NotificationService) SendEarlyAccessRejected(user *models.User, feedback *string) error {
	data := map[string]interface{}{
		"Username": user.Username,
		"Feedback": deref(feedback),
	}
	return s.send("early_access_rejected", []string{user.Email}, data)
}

// NotifyAdmins records an in-app notification for the admin dashboard.
func (s *NotificationService) NotifyAdmins(kind, title, message, resourceType string, resourceID *uuid.UUID) error {
	notification := &models.AdminNotification{
		Type:                kind,
		Title:               title,
		Message:             message,
		Priority:            "medium",
		Status:              "unread",
		RelatedResourceType: resourceType,
		RelatedResourceID:   resourceID,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// Helper methods
func (s *NotificationService) send(templateType string, to []string, data map[string]interface{}) error {
	tmpl := s.getEmailTemplate(templateType)

	subject, err := renderSubject(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if err := s.mailer.Send(to, subject, body); err != nil {
		logrus.WithFields(logrus.Fields{
			"template": templateType,
			"to":       to,
			"error":    err,
		}).Error("Failed to send email")
		return err
	}
	return nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Subjects are plain header text and must not be HTML-escaped.
func renderSubject(subject string, data interface{}) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(buf.String()), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"signing_link": {
			Subject: "Signature requested: {{.ContractTitle}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.SignerName}},</h2>
	<p>You have been asked to sign the {{.Role}} sections of "{{.ContractTitle}}".</p>
	<a href="{{.SigningURL}}">Review and sign</a>
	<p>This link expires on {{.ExpiresAt}}. Do not forward it; anyone holding it can sign on your behalf.</p>
</body>
</html>`,
		},
		"contract_executed": {
			Subject: "Fully executed: {{.ContractTitle}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>All parties have signed</h2>
	<p>"{{.ContractTitle}}" is now fully executed.</p>
	<a href="{{.ContractURL}}">View contract</a>
</body>
</html>`,
		},
		"early_access_approved": {
			Subject: "Your early access is approved",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome aboard, {{.Username}}!</h2>
	<p>Your early-access application was approved and your account now has {{.Role}} access.</p>
	{{if .Feedback}}<p>{{.Feedback}}</p>{{end}}
	<a href="{{.DashboardURL}}">Open your dashboard</a>
</body>
</html>`,
		},
		"early_access_rejected": {
			Subject: "Your early-access application",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>We are unable to offer you early access at this time. Any subscription started with your application has been cancelled.</p>
	{{if .Feedback}}<p>{{.Feedback}}</p>{{end}}
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}

type smtpMailer struct {
	cfg config.EmailConfig
}

func (m *smtpMailer) Send(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.cfg.FromName, m.cfg.FromEmail, strings.Join(to, ", "), subject, body))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	return smtp.SendMail(addr, auth, m.cfg.FromEmail, to, msg)
}

// logMailer is used when SMTP is not configured.
type logMailer struct{}

func (logMailer) Send(to []string, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not configured, skipping delivery")
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
