package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/lifemap/lifemap-api/internal/appointments"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// RecipientPolicy decides who receives booking confirmations.
type RecipientPolicy string

const (
	// RecipientIdentity emails only identities verified by the session layer.
	RecipientIdentity RecipientPolicy = "identity"
	// RecipientRequest also emails identities supplied in the request body.
	RecipientRequest RecipientPolicy = "request"
	RecipientNone    RecipientPolicy = "none"
)

// ParseRecipientPolicy maps NOTIFY_RECIPIENT to a policy, defaulting to
// RecipientIdentity for unknown values.
func ParseRecipientPolicy(v string) RecipientPolicy {
	switch RecipientPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case RecipientRequest:
		return RecipientRequest
	case RecipientNone:
		return RecipientNone
	default:
		return RecipientIdentity
	}
}

// BookingNotifier emails booking confirmations and reminders.
type BookingNotifier struct {
	sender EmailSender
	policy RecipientPolicy
	logger *logging.Logger
}

func NewBookingNotifier(sender EmailSender, policy RecipientPolicy, logger *logging.Logger) *BookingNotifier {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{sender: sender, policy: policy, logger: logger}
}

var _ appointments.Notifier = (*BookingNotifier)(nil)

// NotifyBooked sends the confirmation for a new appointment. Returning nil
// without sending is normal when the policy has no recipient.
func (n *BookingNotifier) NotifyBooked(ctx context.Context, appt appointments.Appointment, identityVerified bool) error {
	to, ok := n.recipient(appt.OwnerIdentity, identityVerified)
	if !ok {
		n.logger.Debug("booking confirmation skipped", "appointment_id", appt.ID, "policy", string(n.policy))
		return nil
	}
	msg, err := renderBooking(confirmationHeading, appt)
	if err != nil {
		return err
	}
	msg.To = to
	msg.Subject = "Appointment confirmed: " + appt.Service
	return n.sender.Send(ctx, msg)
}

// NotifyReminder sends an upcoming-appointment reminder to the owner. Owners
// are stored only after the handler's identity checks, so the policy only
// gates the none case here.
func (n *BookingNotifier) NotifyReminder(ctx context.Context, appt appointments.Appointment) (bool, error) {
	if n.policy == RecipientNone {
		return false, nil
	}
	to, ok := validAddress(appt.OwnerIdentity)
	if !ok {
		return false, nil
	}
	msg, err := renderBooking(reminderHeading, appt)
	if err != nil {
		return false, err
	}
	msg.To = to
	msg.Subject = "Reminder: " + appt.Service + " on " + appt.Day
	if err := n.sender.Send(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

func (n *BookingNotifier) recipient(owner string, verified bool) (string, bool) {
	switch n.policy {
	case RecipientNone:
		return "", false
	case RecipientRequest:
	default:
		if !verified {
			return "", false
		}
	}
	return validAddress(owner)
}

func validAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", false
	}
	return addr.Address, true
}

type bookingView struct {
	Heading      string
	Title        string
	Service      string
	ProviderName string
	Day          string
	Time         string
	Locality     string
}

const (
	confirmationHeading = "Your appointment is confirmed."
	reminderHeading     = "Your appointment is coming up."
)

var bookingHTML = template.Must(template.New("booking").Parse(`<h2>{{.Heading}}</h2>
<p><strong>{{.Title}}</strong> ({{.Service}})</p>
<ul>
<li>Provider: {{.ProviderName}}</li>
<li>When: {{.Day}} at {{.Time}}</li>
{{if .Locality}}<li>Where: {{.Locality}}</li>{{end}}
</ul>
<p>LifeMap</p>`))

func renderBooking(heading string, appt appointments.Appointment) (EmailMessage, error) {
	view := bookingView{
		Heading:      heading,
		Title:        appt.Title,
		Service:      appt.Service,
		ProviderName: appt.ProviderName,
		Day:          appt.Day,
		Time:         appt.Time,
		Locality:     appt.Locality,
	}
	var html bytes.Buffer
	if err := bookingHTML.Execute(&html, view); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render booking email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n%s (%s)\nProvider: %s\nWhen: %s at %s\n", heading, view.Title, view.Service, view.ProviderName, view.Day, view.Time)
	if view.Locality != "" {
		fmt.Fprintf(&text, "Where: %s\n", view.Locality)
	}
	text.WriteString("\nLifeMap\n")
	return EmailMessage{Body: text.String(), HTML: html.String()}, nil
}
