package email

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxwizard/sdk-go/mailer"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Address
	}{
		{"alice@example.com", Address{Address: "alice@example.com"}},
		{"Alice Smith <alice@example.com>", Address{Address: "alice@example.com", Name: "Alice Smith"}},
		{`"Smith, Bob" <bob@example.com>`, Address{Address: "bob@example.com", Name: "Smith, Bob"}},
		{"  not-an-address  ", Address{Address: "not-an-address"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAddress(tt.input), "input %q", tt.input)
	}
}

func TestAddressString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@example.com", Address{Address: "a@example.com"}.String())
	assert.Equal(t, "A <a@example.com>", Address{Address: "a@example.com", Name: "A"}.String())
}

func TestDeriveText(t *testing.T) {
	t.Parallel()

	e := &Email{HTMLBody: "<html><body><h1>Hello</h1><p>World</p></body></html>"}
	require.NoError(t, e.DeriveText())
	assert.Contains(t, e.TextBody, "Hello")
	assert.Contains(t, e.TextBody, "World")
	assert.NotContains(t, e.TextBody, "<p>")
}

func TestDeriveText_KeepsExistingText(t *testing.T) {
	t.Parallel()

	e := &Email{HTMLBody: "<p>html</p>", TextBody: "own text"}
	require.NoError(t, e.DeriveText())
	assert.Equal(t, "own text", e.TextBody)

	empty := &Email{}
	require.NoError(t, empty.DeriveText())
	assert.Empty(t, empty.TextBody)
}

func TestApply(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o600))

	e := &Email{
		From:     Address{Address: "from@example.com", Name: "From"},
		To:       []Address{{Address: "to1@example.com"}, {Address: "to2@example.com", Name: "Two"}},
		Cc:       []Address{{Address: "cc@example.com"}},
		Bcc:      []Address{{Address: "bcc@example.com"}},
		Subject:  " Subject ",
		HTMLBody: "<p>hi</p>",
		Attachments: []Attachment{
			{Path: path},
			{Filename: "inline.txt", ContentType: "text/plain", Content: []byte("inline")},
		},
		Headers: []string{"X-One: 1"},
	}

	m := e.Apply(mailer.New(1, "token"))
	msg := m.Message()

	assert.Equal(t, mailer.Recipient{Address: "from@example.com", Name: "From"}, msg.From)
	require.Len(t, msg.To, 2)
	assert.Equal(t, "Two", msg.To[1].Name)
	assert.Len(t, msg.Cc, 1)
	assert.Len(t, msg.Bcc, 1)
	assert.Equal(t, "Subject", msg.Subject)
	require.NotNil(t, msg.HTML)
	assert.Equal(t, "<p>hi</p>", *msg.HTML)
	assert.Nil(t, msg.Text)
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "notes.txt", msg.Attachments[0].Filename)
	assert.Equal(t, "inline.txt", msg.Attachments[1].Filename)
	assert.Equal(t, []string{"X-One: 1"}, msg.Headers)
	assert.Equal(t, 0, m.ErrorCode())
}

func TestApply_MissingAttachmentRecordsError(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "gone.pdf")
	e := &Email{Attachments: []Attachment{{Path: missing}}}

	m := e.Apply(mailer.New(1, "token"))
	assert.Equal(t, mailer.FileNotReadable, m.ErrorCode())
	assert.True(t, strings.Contains(m.ErrorMessage(), missing))
}
