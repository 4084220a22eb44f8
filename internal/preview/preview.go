// Package preview renders a built message for a dry run instead of sending it.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"

	"github.com/mxwizard/sdk-go/mailer"
)

const separator = "========================================\n"

// Write prints msg to w in a readable format.
func Write(w io.Writer, msg mailer.Message) error {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", formatRecipient(msg.From))
	fmt.Fprintf(&b, "To: %s\n", formatRecipients(msg.To))

	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", formatRecipients(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", formatRecipients(msg.Bcc))
	}

	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)

	for _, h := range msg.Headers {
		fmt.Fprintf(&b, "Header: %s\n", h)
	}

	if msg.Text != nil {
		b.WriteString("Text:\n")
		b.WriteString(*msg.Text + "\n")
	}
	if msg.HTML != nil {
		b.WriteString("HTML:\n")
		b.WriteString(*msg.HTML + "\n")
	}

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s, %s)",
				att.Filename, att.Type, units.HumanSize(float64(att.Size()))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRecipient(r mailer.Recipient) string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Address)
}

func formatRecipients(rs []mailer.Recipient) string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, formatRecipient(r))
	}
	return strings.Join(out, ", ")
}
