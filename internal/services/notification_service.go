// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/models"
)

// NotificationService queues and delivers email side effects. State
// transitions only ever write outbox rows, delivery happens later in
// DrainOutbox, so SMTP latency or failure cannot touch the transition that
// triggered the email.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
	pool   *ants.Pool
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	pool, err := ants.NewPool(config.Scheduler.OutboxWorkers)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create notification worker pool")
	}

	return &NotificationService{
		db:     db,
		config: config,
		pool:   pool,
	}
}

// EnqueueAuctionWon queues the winner's email with the purchase link. Called
// inside the purchase-creation transaction.
func (s *NotificationService) EnqueueAuctionWon(tx *gorm.DB, purchase *models.AuctionPurchase, artwork *models.Artwork) error {
	winner, err := s.lookupUser(tx, purchase.WinnerID)
	if err != nil {
		return err
	}

	return s.enqueue(tx, winner.Email, "auction_won", "You won the auction for "+artwork.Title, models.JSONB{
		"WinnerName":   winner.Username,
		"ArtworkTitle": artwork.Title,
		"WinningBid":   purchase.WinningBid,
		"TotalAmount":  purchase.TotalAmount,
		"ExpiresAt":    purchase.ExpiresAt.Format("January 2, 2006"),
		"PurchaseURL":  fmt.Sprintf("%s/auction-purchases/%s", s.config.Frontend.BaseURL, purchase.AuctionID),
	})
}

// EnqueuePaymentReceived queues the artist's email after the winner pays.
func (s *NotificationService) EnqueuePaymentReceived(tx *gorm.DB, purchase *models.AuctionPurchase) error {
	artist, err := s.lookupUser(tx, purchase.ArtistID)
	if err != nil {
		return err
	}

	return s.enqueue(tx, artist.Email, "payment_received", "Payment received for your artwork", models.JSONB{
		"ArtistName":  artist.Username,
		"WinningBid":  purchase.WinningBid,
		"PurchaseURL": fmt.Sprintf("%s/auction-purchases/%s", s.config.Frontend.BaseURL, purchase.AuctionID),
	})
}

// EnqueueShipped queues the winner's shipping confirmation.
func (s *NotificationService) EnqueueShipped(tx *gorm.DB, purchase *models.AuctionPurchase) error {
	winner, err := s.lookupUser(tx, purchase.WinnerID)
	if err != nil {
		return err
	}

	return s.enqueue(tx, winner.Email, "purchase_shipped", "Your artwork has shipped", models.JSONB{
		"WinnerName":     winner.Username,
		"TrackingNumber": purchase.TrackingNumber,
		"Carrier":        purchase.Carrier,
		"PurchaseURL":    fmt.Sprintf("%s/auction-purchases/%s", s.config.Frontend.BaseURL, purchase.AuctionID),
	})
}

// EnqueueReminder queues the pending-purchase reminder sent by the daily
// sweep.
func (s *NotificationService) EnqueueReminder(tx *gorm.DB, purchase *models.AuctionPurchase) error {
	winner, err := s.lookupUser(tx, purchase.WinnerID)
	if err != nil {
		return err
	}

	return s.enqueue(tx, winner.Email, "purchase_reminder", "Your auction purchase is waiting", models.JSONB{
		"WinnerName":  winner.Username,
		"ExpiresAt":   purchase.ExpiresAt.Format("January 2, 2006"),
		"PurchaseURL": fmt.Sprintf("%s/auction-purchases/%s", s.config.Frontend.BaseURL, purchase.AuctionID),
	})
}

func (s *NotificationService) enqueue(tx *gorm.DB, recipient, tmpl, subject string, payload models.JSONB) error {
	entry := &models.NotificationOutbox{
		Recipient: recipient,
		Template:  tmpl,
		Subject:   subject,
		Payload:   payload,
		Status:    models.NotificationStatusQueued,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

// DrainOutbox delivers queued notifications through the worker pool. Failed
// sends stay queued with an incremented attempt count until the cap, after
// which they are parked as failed for manual inspection.
func (s *NotificationService) DrainOutbox(batchSize int) (int, error) {
	var queued []models.NotificationOutbox
	if err := s.db.Where("status = ? AND attempts < ?",
		models.NotificationStatusQueued, s.config.Scheduler.OutboxMaxAttempts).
		Order("created_at").
		Limit(batchSize).
		Find(&queued).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch queued notifications: %w", err)
	}

	var wg sync.WaitGroup
	var mtx sync.Mutex
	delivered := 0

	for i := range queued {
		entry := queued[i]
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if s.deliver(&entry) {
				mtx.Lock()
				delivered++
				mtx.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			logrus.WithError(err).Error("Failed to submit notification to worker pool")
		}
	}
	wg.Wait()

	return delivered, nil
}

func (s *NotificationService) deliver(entry *models.NotificationOutbox) bool {
	tmpl := s.getEmailTemplate(entry.Template)
	body, err := s.renderTemplate(tmpl.Body, map[string]interface{}(entry.Payload))
	if err == nil {
		err = s.sendEmail(entry.Recipient, entry.Subject, body)
	}

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"template":  entry.Template,
			"recipient": entry.Recipient,
		}).Warn("Notification delivery failed")

		updates := map[string]interface{}{
			"attempts":   entry.Attempts + 1,
			"last_error": err.Error(),
		}
		if entry.Attempts+1 >= s.config.Scheduler.OutboxMaxAttempts {
			updates["status"] = models.NotificationStatusFailed
		}
		if err := s.db.Model(entry).Updates(updates).Error; err != nil {
			logrus.WithError(err).WithField("notification_id", entry.ID).
				Error("Failed to record notification attempt")
		}
		return false
	}

	now := time.Now()
	if err := s.db.Model(entry).Updates(map[string]interface{}{
		"status":  models.NotificationStatusSent,
		"sent_at": now,
	}).Error; err != nil {
		// A row left queued here will be delivered again on the next drain.
		logrus.WithError(err).WithField("notification_id", entry.ID).
			Error("Failed to mark notification sent")
	}
	return true
}

func (s *NotificationService) lookupUser(tx *gorm.DB, id interface{}) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("notification recipient not found: %w", err)
	}
	return &user, nil
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).
			Info("Email delivery skipped, SMTP not configured")
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
		"auction_won": {
			Subject: "You won the auction",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.WinnerName}}!</h2>
	<p>Your bid of ${{.WinningBid}} won the auction for "{{.ArtworkTitle}}".</p>
	<p>Total due (including platform and shipping fees): ${{.TotalAmount}}.</p>
	<p>Please provide your shipping address and complete payment before {{.ExpiresAt}}.</p>
	<a href="{{.PurchaseURL}}">Complete your purchase</a>
	<p>Best regards,<br>The PaletteBid Team</p>
</body>
</html>`,
		},
		"payment_received": {
			Subject: "Payment received",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Good news {{.ArtistName}}!</h2>
	<p>The winning bidder has paid ${{.WinningBid}} for your artwork.</p>
	<p>Please arrange shipping and update the tracking details.</p>
	<a href="{{.PurchaseURL}}">View purchase</a>
	<p>Best regards,<br>The PaletteBid Team</p>
</body>
</html>`,
		},
		"purchase_shipped": {
			Subject: "Your artwork has shipped",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.WinnerName}},</h2>
	<p>Your artwork is on its way.</p>
	<p>Carrier: {{.Carrier}}<br>Tracking number: {{.TrackingNumber}}</p>
	<a href="{{.PurchaseURL}}">Track your purchase</a>
	<p>Best regards,<br>The PaletteBid Team</p>
</body>
</html>`,
		},
		"purchase_reminder": {
			Subject: "Your auction purchase is waiting",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.WinnerName}},</h2>
	<p>Your auction purchase is still pending. It expires on {{.ExpiresAt}}.</p>
	<a href="{{.PurchaseURL}}">Complete your purchase</a>
	<p>Best regards,<br>The PaletteBid Team</p>
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
