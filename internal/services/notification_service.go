// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/models"
)

// Mailer delivers a rendered HTML email.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type smtpMailer struct {
	cfg config.EmailConfig
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	from := m.cfg.FromEmail
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromEmail)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, subject, htmlBody))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	return smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{to}, msg)
}

// logMailer is used when SMTP is not configured.
type logMailer struct{}

func (logMailer) Send(to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery skipped, SMTP not configured")
	return nil
}

type NotificationService struct {
	db          *gorm.DB
	mailer      Mailer
	frontendURL string
	storeName   string
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	var mailer Mailer = logMailer{}
	if cfg.Email.Enabled() {
		mailer = &smtpMailer{cfg: cfg.Email}
	}
	return NewNotificationServiceWithMailer(db, mailer, cfg.Frontend.BaseURL)
}

func NewNotificationServiceWithMailer(db *gorm.DB, mailer Mailer, frontendURL string) *NotificationService {
	return &NotificationService{
		db:          db,
		mailer:      mailer,
		frontendURL: frontendURL,
		storeName:   "Gemstore",
	}
}

// Account emails

func (s *NotificationService) SendWelcomeEmail(user *models.User, verificationToken string) error {
	return s.send(user.Email, "Welcome to "+s.storeName, "welcome", map[string]interface{}{
		"Username":        user.Username,
		"VerificationURL": fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, verificationToken),
		"StoreName":       s.storeName,
	})
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, resetToken string) error {
	return s.send(user.Email, "Password Reset Request", "password_reset", map[string]interface{}{
		"Username":  user.Username,
		"ResetURL":  fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, resetToken),
		"ExpiresIn": "1 hour",
	})
}

func (s *NotificationService) SendUserStatusChangeNotification(user *models.User, oldStatus models.UserStatus, reason string) error {
	return s.send(user.Email, "Account Status Update", "user_status_change", map[string]interface{}{
		"Username":  user.Username,
		"OldStatus": oldStatus,
		"NewStatus": user.Status,
		"Reason":    reason,
	})
}

// Order emails. These respect the customer's order update preferences.

func (s *NotificationService) SendOrderPlaced(user *models.User, order *models.Order) error {
	if !wantsOrderUpdates(user) {
		return nil
	}
	return s.send(user.Email, "Order Confirmation - "+order.OrderNumber, "order_placed", s.orderData(user, order, ""))
}

func (s *NotificationService) SendOrderStatusChanged(user *models.User, order *models.Order) error {
	if !wantsOrderUpdates(user) {
		return nil
	}
	return s.send(user.Email, fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status), "order_status", s.orderData(user, order, ""))
}

func (s *NotificationService) SendOrderCancelled(user *models.User, order *models.Order, refunded bool) error {
	if !wantsOrderUpdates(user) {
		return nil
	}
	data := s.orderData(user, order, order.CancelReason)
	data["Refunded"] = refunded
	return s.send(user.Email, "Order Cancelled - "+order.OrderNumber, "order_cancelled", data)
}

// SendLowStockAlert emails every active admin about new inventory alerts.
func (s *NotificationService) SendLowStockAlert(alerts []models.InventoryAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	var admins []models.User
	if err := s.db.Where("role = ? AND status = ?", models.UserRoleAdmin, models.UserStatusActive).Find(&admins).Error; err != nil {
		return fmt.Errorf("failed to load admins: %w", err)
	}

	data := map[string]interface{}{
		"Alerts":       alerts,
		"InventoryURL": fmt.Sprintf("%s/admin/inventory", s.frontendURL),
	}
	for _, admin := range admins {
		if err := s.send(admin.Email, fmt.Sprintf("Low stock: %d gemstone(s)", len(alerts)), "low_stock", data); err != nil {
			logrus.WithError(err).WithField("admin", admin.Email).Warn("Failed to send low stock alert")
		}
	}
	return nil
}

func wantsOrderUpdates(user *models.User) bool {
	return user != nil && user.Preferences.EmailNotifications && user.Preferences.OrderUpdates
}

func (s *NotificationService) orderData(user *models.User, order *models.Order, reason string) map[string]interface{} {
	return map[string]interface{}{
		"Username":    user.Username,
		"OrderNumber": order.OrderNumber,
		"Status":      order.Status,
		"Items":       order.Items,
		"Total":       FormatMoney(order.DisplayTotal, order.Currency),
		"Reason":      reason,
		"OrderURL":    fmt.Sprintf("%s/orders/%s", s.frontendURL, order.ID),
		"StoreName":   s.storeName,
	}
}

func (s *NotificationService) send(to, subject, templateName string, data interface{}) error {
	body, err := renderEmail(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.mailer.Send(to, subject, body)
}

func renderEmail(name string, data interface{}) (string, error) {
	tmpl, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var emailTemplates = map[string]*template.Template{
	"welcome": template.Must(template.New("welcome").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Username}}!</h2>
	<p>Thank you for joining {{.StoreName}}. Please verify your email address:</p>
	<a href="{{.VerificationURL}}">Verify Email</a>
</body>
</html>`)),
	"password_reset": template.Must(template.New("password_reset").Parse(`
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Username}},</p>
	<p>Use the link below to reset your password. It expires in {{.ExpiresIn}}.</p>
	<a href="{{.ResetURL}}">Reset Password</a>
</body>
</html>`)),
	"user_status_change": template.Must(template.New("user_status_change").Parse(`
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Username}},</p>
	<p>Your account status changed from {{.OldStatus}} to {{.NewStatus}}.</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
</body>
</html>`)),
	"order_placed": template.Must(template.New("order_placed").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order, {{.Username}}!</h2>
	<p>Order <strong>{{.OrderNumber}}</strong> has been received.</p>
	<ul>{{range .Items}}<li>{{.Quantity}} x {{.GemstoneName}}</li>{{end}}</ul>
	<p>Total: {{.Total}}</p>
	<a href="{{.OrderURL}}">View order</a>
</body>
</html>`)),
	"order_status": template.Must(template.New("order_status").Parse(`
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Username}},</p>
	<p>Order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
	<a href="{{.OrderURL}}">Track your order</a>
</body>
</html>`)),
	"order_cancelled": template.Must(template.New("order_cancelled").Parse(`
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Username}},</p>
	<p>Order <strong>{{.OrderNumber}}</strong> has been cancelled.</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
	{{if .Refunded}}<p>A refund of {{.Total}} has been issued to your original payment method.</p>{{end}}
</body>
</html>`)),
	"low_stock": template.Must(template.New("low_stock").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Low stock</h2>
	<ul>{{range .Alerts}}<li>{{.Gemstone.Name}} ({{.Gemstone.SerialNumber}}): {{.StockAtAlert}} left</li>{{end}}</ul>
	<a href="{{.InventoryURL}}">Open inventory</a>
</body>
</html>`)),
}
