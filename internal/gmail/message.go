package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/wneessen/go-mail"
)

// userAgent is written into the User-Agent and X-Mailer headers.
const userAgent = "mailmerge"

// Envelope is a fully assembled message ready for the Gmail API.
type Envelope struct {
	// MIME is the RFC 5322 message.
	MIME []byte
	// Raw is MIME in URL-safe base64, as users.messages.send expects it.
	Raw string
}

// BuildMessage assembles a message to a single recipient. With an empty
// html the message is a single text/plain part, otherwise it is
// multipart/alternative with the plain part first. An empty sender leaves
// out the From header so Gmail fills in the authorized account.
//
// Addresses are not validated: one that cannot be parsed is written
// verbatim and left for the provider to reject.
func BuildMessage(sender, recipient, subject, text, html string) (*Envelope, error) {
	m := mail.NewMsg(
		mail.WithEncoding(mail.EncodingB64),
		mail.WithCharset(mail.CharsetUTF8),
	)

	if sender != "" {
		if err := m.From(sender); err != nil {
			m.SetGenHeader(mail.Header(mail.HeaderFrom), sender)
		}
	}
	if err := m.To(recipient); err != nil {
		m.SetGenHeader(mail.Header(mail.HeaderTo), recipient)
	}

	m.Subject(subject)
	m.SetDate()
	m.SetMessageID()
	m.SetUserAgent(userAgent)

	m.SetBodyString(mail.TypeTextPlain, text)
	if html != "" {
		m.AddAlternativeString(mail.TypeTextHTML, html)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render message to %s: %w", recipient, err)
	}

	return &Envelope{
		MIME: buf.Bytes(),
		Raw:  base64.URLEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
