// Package notifications reports periodic usage digests through the
// configured channels (webhook and/or email).
package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/replypilot/replypilot/internal/config"
	"github.com/replypilot/replypilot/internal/models"
)

// Digest is one periodic usage report.
type Digest struct {
	GeneratedAt    time.Time    `json:"generated_at"`
	Period         string       `json:"period"`
	Stats          models.Stats `json:"stats"`
	Enabled        bool         `json:"enabled"`
	DecoratedPosts int          `json:"decorated_posts"`
}

// NotificationInterface defines the contract for digest delivery.
type NotificationInterface interface {
	SendDigest(d *Digest) error
}

// Service delivers digests via webhook and email.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ NotificationInterface = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends the digest via every configured channel.
func (s *Service) SendDigest(d *Digest) error {
	var errs []string

	if s.config.DigestWebhookURL != "" {
		if err := s.sendWebhook(d); err != nil {
			logrus.Errorf("Failed to send webhook digest: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent digest to webhook")
		}
	}

	if s.config.DigestEmail != "" {
		if err := s.sendEmail(d); err != nil {
			logrus.Errorf("Failed to send email digest: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("digest errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(d *Digest) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(d).
		Post(s.config.DigestWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post digest: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("digest webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(d *Digest) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.DigestEmail)
	m.SetHeader("Subject", fmt.Sprintf("Reply Pilot %s digest - %s", d.Period, d.GeneratedAt.Format("2006-01-02")))
	m.SetBody("text/html", s.buildEmailBody(d))

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildEmailBody(d *Digest) string {
	status := "disabled"
	if d.Enabled {
		status = "enabled"
	}
	return fmt.Sprintf(`
		<h2>Reply Pilot usage digest (%s)</h2>
		<p>Generated %s</p>
		<ul>
			<li>Posts processed: %d</li>
			<li>Suggestions generated: %d</li>
			<li>Posts currently decorated: %d</li>
			<li>Pipeline: %s</li>
		</ul>`,
		d.Period,
		d.GeneratedAt.Format("2006-01-02 15:04:05 UTC"),
		d.Stats.PostsProcessed,
		d.Stats.SuggestionsGenerated,
		d.DecoratedPosts,
		status,
	)
}
