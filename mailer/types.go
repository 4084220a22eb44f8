package mailer

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Message is the request body sent to the MX Wizard send endpoint.
type Message struct {
	From        Recipient    `json:"from"`
	To          []Recipient  `json:"to"`
	Cc          []Recipient  `json:"cc"`
	Bcc         []Recipient  `json:"bcc"`
	Subject     string       `json:"subject"`
	HTML        *string      `json:"html,omitempty"`
	Text        *string      `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Headers     []string     `json:"headers"`
}

// Recipient is an email address with an optional display name.
type Recipient struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Attachment is a file carried inline in the request as base64.
type Attachment struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Data     string `json:"data"`
}

// Size returns the decoded length of the attachment content in bytes.
func (a Attachment) Size() int {
	n := base64.StdEncoding.DecodedLen(len(a.Data))
	return n - strings.Count(a.Data[max(0, len(a.Data)-2):], "=")
}

// errorResponse is the body the API returns alongside a non-200 status.
// Fields are kept raw so that each one can fall back independently.
type errorResponse struct {
	Code    json.RawMessage `json:"code"`
	Message json.RawMessage `json:"message"`
}

func newRecipient(address, name string) Recipient {
	return Recipient{
		Address: strings.TrimSpace(address),
		Name:    strings.TrimSpace(name),
	}
}

func newMessage() Message {
	return Message{
		To:          []Recipient{},
		Cc:          []Recipient{},
		Bcc:         []Recipient{},
		Attachments: []Attachment{},
		Headers:     []string{},
	}
}

// clone returns a deep copy of the message.
func (m Message) clone() Message {
	out := Message{
		From:        m.From,
		To:          append([]Recipient{}, m.To...),
		Cc:          append([]Recipient{}, m.Cc...),
		Bcc:         append([]Recipient{}, m.Bcc...),
		Subject:     m.Subject,
		Attachments: append([]Attachment{}, m.Attachments...),
		Headers:     append([]string{}, m.Headers...),
	}
	if m.HTML != nil {
		html := *m.HTML
		out.HTML = &html
	}
	if m.Text != nil {
		text := *m.Text
		out.Text = &text
	}
	return out
}
