// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/propshare/propshare-backend/internal/config"
	"github.com/propshare/propshare-backend/internal/models"
)

type NotificationService struct {
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{config: config}
}

// Settlement notifications
func (s *NotificationService) SendPurchaseConfirmation(user *models.User, property *models.Property, transaction *models.Transaction) error {
	data := map[string]interface{}{
		"Username":      user.Username,
		"PropertyTitle": property.Title,
		"TokenAmount":   transaction.TokenAmount,
		"TotalCharged":  fmt.Sprintf("%.2f", transaction.NetAmount),
		"Currency":      transaction.Currency,
		"PortfolioURL":  fmt.Sprintf("%s/portfolio", s.config.Frontend.BaseURL),
	}

	subject := "Purchase Confirmed - " + property.Title
	template := s.getEmailTemplate("purchase_confirmation")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendTransferPending(user *models.User, property *models.Property, transaction *models.Transaction) error {
	data := map[string]interface{}{
		"Username":      user.Username,
		"PropertyTitle": property.Title,
		"TokenAmount":   transaction.TokenAmount,
		"TransactionID": transaction.ID,
	}

	subject := "Purchase Processing - " + property.Title
	template := s.getEmailTemplate("transfer_pending")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendRefundNotification(user *models.User, property *models.Property, transaction *models.Transaction, reason string) error {
	data := map[string]interface{}{
		"Username":      user.Username,
		"PropertyTitle": property.Title,
		"Amount":        fmt.Sprintf("%.2f", transaction.NetAmount),
		"Currency":      transaction.Currency,
		"Reason":        reason,
		"TransactionID": transaction.ID,
	}

	subject := "Refund Processed - " + property.Title
	template := s.getEmailTemplate("refund_notification")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		fmt.Printf("Email would be sent to %s: %s\n", to, subject)
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
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

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"purchase_confirmation": {
			Subject: "Purchase Confirmed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Purchase Confirmed!</h2>
	<p>Hello {{.Username}},</p>
	<p>Your purchase of {{.TokenAmount}} tokens in "{{.PropertyTitle}}" has settled.</p>
	<p>Total charged: {{.TotalCharged}} {{.Currency}}</p>
	<a href="{{.PortfolioURL}}">View Your Portfolio</a>
	<p>Best regards,<br>PropShare Team</p>
</body>
</html>`,
		},
		"transfer_pending": {
			Subject: "Purchase Processing",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Purchase Processing</h2>
	<p>Hello {{.Username}},</p>
	<p>Your payment for {{.TokenAmount}} tokens in "{{.PropertyTitle}}" was received.
	The token transfer is still in progress and will complete shortly; no action is needed.</p>
	<p>Reference: {{.TransactionID}}</p>
	<p>Best regards,<br>PropShare Team</p>
</body>
</html>`,
		},
		"refund_notification": {
			Subject: "Refund Processed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Refund Processed</h2>
	<p>Hello {{.Username}},</p>
	<p>Your purchase in "{{.PropertyTitle}}" could not be completed: {{.Reason}}.</p>
	<p>A full refund of {{.Amount}} {{.Currency}} has been issued to your payment method.</p>
	<p>Reference: {{.TransactionID}}</p>
	<p>Best regards,<br>PropShare Team</p>
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
