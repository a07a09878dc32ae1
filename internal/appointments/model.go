package appointments

import (
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Appointment is a persisted booking. Rows are never updated.
type Appointment struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Service       string    `json:"service"`
	Locality      string    `json:"locality"`
	Day           string    `json:"day"`
	Time          string    `json:"time"`
	ProviderID    int       `json:"providerId"`
	ProviderName  string    `json:"providerName"`
	OwnerIdentity string    `json:"ownerIdentity,omitempty"`
	SelectedBy    string    `json:"selectedBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// StartsAt combines Day and Time in loc.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateLayout+" "+timeLayout, a.Day+" "+a.Time, loc)
}

// CreateRequest is the booking request body.
type CreateRequest struct {
	Title             string `json:"title,omitempty"`
	ServiceCategory   string `json:"serviceCategory"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Location          string `json:"location,omitempty"`
	RequesterIdentity string `json:"requesterIdentity,omitempty"`

	// IdentityVerified is set by the HTTP layer when RequesterIdentity came
	// from a verified session rather than the body.
	IdentityVerified bool `json:"-"`
}

func (r *CreateRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.ServiceCategory = strings.TrimSpace(r.ServiceCategory)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Location = strings.TrimSpace(r.Location)
	r.RequesterIdentity = strings.TrimSpace(r.RequesterIdentity)
}

// Validate checks required fields, then the date, then the time.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.ServiceCategory) == "" || strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.Time) == "" {
		return &ValidationError{Reason: ReasonMissingField}
	}
	date := strings.TrimSpace(r.Date)
	if len(date) != len(dateLayout) {
		return &ValidationError{Reason: ReasonInvalidDate}
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return &ValidationError{Reason: ReasonInvalidDate}
	}
	clock := strings.TrimSpace(r.Time)
	if len(clock) != len(timeLayout) {
		return &ValidationError{Reason: ReasonInvalidTime}
	}
	if _, err := time.Parse(timeLayout, clock); err != nil {
		return &ValidationError{Reason: ReasonInvalidTime}
	}
	return nil
}
