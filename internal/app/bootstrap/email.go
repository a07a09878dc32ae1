package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/lifemap/lifemap-api/internal/config"
	"github.com/lifemap/lifemap-api/internal/notify"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// BuildEmailSender picks the sender for EMAIL_PROVIDER. SendGrid without an
// API key and unknown providers fall back to the stub sender, which only logs.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email sender enabled", "provider", "sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected without SENDGRID_API_KEY; using stub sender")
	case "ses":
		logger.Info("email sender enabled", "provider", "ses")
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
	case "", "stub":
	default:
		logger.Warn("unknown email provider; using stub sender", "provider", cfg.EmailProvider)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildBookingNotifier applies the NOTIFY_RECIPIENT policy to sender.
func BuildBookingNotifier(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) *notify.BookingNotifier {
	policy := notify.RecipientIdentity
	if cfg != nil {
		policy = notify.ParseRecipientPolicy(cfg.NotifyRecipient)
	}
	return notify.NewBookingNotifier(sender, policy, logger)
}
