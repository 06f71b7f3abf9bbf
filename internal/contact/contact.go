// Package contact builds the messaging, scheduling and email links shown next to a vehicle.
package contact

import (
	"fmt"
	"net/url"
	"strings"
)

const generalInquiry = "Hi, I'd like to learn about importing a supercar from S. Korea"

// Settings are the dealer contact channels.
type Settings struct {
	WhatsAppNumber string
	SchedulingURL  string
	Email          string
	Phone          string
	ContactName    string
}

// Subject identifies the vehicle a visitor is asking about.
type Subject struct {
	StockID string
	Year    int
	Make    string
	Model   string
	Trim    string
}

// Links is the set of contact URLs rendered on a page.
type Links struct {
	WhatsApp   string `json:"whatsapp"`
	Scheduling string `json:"scheduling"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Message    string `json:"message"`
}

// Builder renders links from Settings.
type Builder struct {
	settings Settings
}

// NewBuilder constructs a Builder.
func NewBuilder(s Settings) Builder {
	return Builder{settings: s}
}

// Message is the prefilled inquiry text for a vehicle.
func (s Subject) Message() string {
	return fmt.Sprintf("Hi, I'm interested in the %d %s %s %s (Stock #%s)", s.Year, s.Make, s.Model, s.Trim, s.StockID)
}

// ForVehicle returns links prefilled for a specific vehicle.
func (b Builder) ForVehicle(s Subject) Links {
	msg := s.Message()
	return b.links(msg, fmt.Sprintf("%d %s %s (Stock #%s)", s.Year, s.Make, s.Model, s.StockID))
}

// General returns links for an inquiry not tied to a vehicle.
func (b Builder) General() Links {
	return b.links(generalInquiry, "Import inquiry")
}

// Settings exposes the configured channels.
func (b Builder) Settings() Settings {
	return b.settings
}

func (b Builder) links(message, subject string) Links {
	out := Links{
		WhatsApp:   "https://wa.me/" + digits(b.settings.WhatsAppNumber) + "?text=" + escape(message),
		Scheduling: b.settings.SchedulingURL,
		Message:    message,
	}
	if b.settings.Email != "" {
		out.Email = "mailto:" + b.settings.Email + "?subject=" + escape(subject)
	}
	if phone := digits(b.settings.Phone); phone != "" {
		if len(phone) == 10 {
			phone = "1" + phone
		}
		out.Phone = "tel:+" + phone
	}
	return out
}

// escape matches browser encodeURIComponent output for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
