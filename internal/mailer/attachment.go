package mailer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/unclebandit/outreach-backend/internal/model"
)

const maxAttachmentSize = 10 << 20

// File is a downloaded attachment ready for encoding.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachmentLoader downloads step attachments by URL.
type AttachmentLoader struct {
	HTTP *http.Client
}

func NewAttachmentLoader(timeout time.Duration) *AttachmentLoader {
	return &AttachmentLoader{HTTP: &http.Client{Timeout: timeout}}
}

func (l *AttachmentLoader) Load(ctx context.Context, att model.Attachment) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return File{}, fmt.Errorf("%w %q: %w", ErrAttachment, att.URL, err)
	}

	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("%w %q: %w", ErrAttachment, att.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("%w %q: %s", ErrAttachment, att.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return File{}, fmt.Errorf("%w %q: %w", ErrAttachment, att.URL, err)
	}
	if len(data) > maxAttachmentSize {
		return File{}, fmt.Errorf("%w %q: larger than %d bytes", ErrAttachment, att.URL, maxAttachmentSize)
	}

	name := att.Name
	if name == "" {
		name = filenameFromURL(att.URL)
	}
	return File{
		Name:        name,
		ContentType: detectContentType(name, resp.Header.Get("Content-Type"), data),
		Data:        data,
	}, nil
}

// LoadAll downloads every attachment; the first failure aborts.
func (l *AttachmentLoader) LoadAll(ctx context.Context, atts []model.Attachment) ([]File, error) {
	files := make([]File, 0, len(atts))
	for _, att := range atts {
		f, err := l.Load(ctx, att)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func filenameFromURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return "attachment"
	}
	base := path.Base(strings.TrimSuffix(parsed.Path, "/"))
	if base == "." || base == "/" || base == "" {
		return "attachment"
	}
	return base
}

func detectContentType(name, header string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil {
			return mt
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
