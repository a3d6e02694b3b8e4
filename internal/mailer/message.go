package mailer

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

// BuildMessage renders msg as an RFC 5322 document with a text/plain and
// text/html alternative, wrapped in multipart/mixed when files are attached.
func BuildMessage(msg *Message, files []File, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", msg.From())
	writeHeader(&buf, "To", msg.To)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", randomID(), senderDomain(msg.FromEmail)))
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(files) == 0 {
		if err := writeAlternative(&buf, msg.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", "multipart/mixed; boundary="+mixed.Boundary())
	buf.WriteString("\r\n")

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + altWriter.Boundary()},
	})
	if err != nil {
		return nil, err
	}
	if err := writeAlternativeParts(altWriter, msg.Text); err != nil {
		return nil, err
	}
	if _, err := part.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", mime.FormatMediaType(f.ContentType, map[string]string{"name": f.Name}))
		header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
		header.Set("Content-Transfer-Encoding", "base64")
		part, err := mixed.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, f.Data); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// writeAlternative writes the alternative body directly under the top-level headers.
func writeAlternative(buf *bytes.Buffer, text string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	writeHeader(buf, "Content-Type", "multipart/alternative; boundary="+w.Boundary())
	buf.WriteString("\r\n")
	if err := writeAlternativeParts(w, text); err != nil {
		return err
	}
	_, err := buf.Write(body.Bytes())
	return err
}

func writeAlternativeParts(w *multipart.Writer, text string) error {
	for _, p := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", HTMLFromText(text)},
	} {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return err
		}
		if err := qp.Close(); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += 76 {
		end := min(i+76, len(encoded))
		if _, err := w.Write([]byte(encoded[i:end] + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

func senderDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return "localhost"
}

func randomID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
