// Package email defines the draft message assembled by the command line
// tool before it is handed to a mailer.Mailer.
package email

import (
	"fmt"
	"net/mail"
	"strings"

	"jaytaylor.com/html2text"

	"github.com/mxwizard/sdk-go/mailer"
)

// Email is a message draft collected from flags, config and .eml files.
type Email struct {
	From        Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	Headers     []string
}

// Address is an email address with an optional display name.
type Address struct {
	Address string
	Name    string
}

// Attachment is either a file on disk (Path) or content already in memory.
type Attachment struct {
	Path        string
	Filename    string
	ContentType string
	Content     []byte
}

// ParseAddress accepts "user@example.com" or "Name <user@example.com>".
// Input that is not RFC 5322 is kept verbatim as the address.
func ParseAddress(s string) Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return Address{Address: strings.TrimSpace(s)}
	}
	return Address{Address: addr.Address, Name: addr.Name}
}

// String formats the address the way mail clients display it.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

var defaultHTMLToTextOpts = html2text.Options{TextOnly: true}

// DeriveText fills TextBody from HTMLBody when only HTML is present.
func (e *Email) DeriveText() error {
	if e.TextBody != "" || e.HTMLBody == "" {
		return nil
	}

	text, err := html2text.FromString(e.HTMLBody, defaultHTMLToTextOpts)
	if err != nil {
		return fmt.Errorf("failed to convert HTML body to text: %w", err)
	}
	e.TextBody = text
	return nil
}

// Apply copies the draft onto m and returns m. Empty bodies are not set.
// Attachment failures are recorded on m as usual.
func (e *Email) Apply(m *mailer.Mailer) *mailer.Mailer {
	if e.From.Address != "" {
		m.SetFrom(e.From.Address, e.From.Name)
	}
	for _, a := range e.To {
		m.AddTo(a.Address, a.Name)
	}
	for _, a := range e.Cc {
		m.AddCc(a.Address, a.Name)
	}
	for _, a := range e.Bcc {
		m.AddBcc(a.Address, a.Name)
	}

	m.SetSubject(e.Subject)
	if e.HTMLBody != "" {
		m.SetHTML(e.HTMLBody)
	}
	if e.TextBody != "" {
		m.SetText(e.TextBody)
	}

	for _, att := range e.Attachments {
		if att.Path != "" {
			m.AddAttachment(att.Path, att.Filename, att.ContentType)
			continue
		}
		m.AttachData(att.Filename, att.ContentType, att.Content)
	}

	for _, h := range e.Headers {
		m.AddCustomHeader(h)
	}

	return m
}
