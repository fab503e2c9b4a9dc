// ABOUTME: Multipart encoding of the blog post form sent on create and update.
// ABOUTME: Update adds the _method=PUT override and remove_cover when the cover is cleared.

package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MethodOverrideField carries the real HTTP method over a POST transport.
	MethodOverrideField = "_method"
	// TagsField is the repeated field name for tags.
	TagsField = "tags[]"
)

// File is an uploaded file part.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile builds a File, sniffing its content type from data.
func NewFile(name string, data []byte) *File {
	return &File{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}

// PostForm is the payload of a create or update. Content must already be
// resolved: it is sent verbatim.
type PostForm struct {
	Title    string
	Subtitle string
	Content  string
	Tags     []string
	Cover    *File
	// RemoveCover asks the backend to drop the existing cover. Ignored when
	// a new cover is attached or when creating.
	RemoveCover bool
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode writes the form as multipart/form-data and returns the body and its
// content type.
func (f PostForm) encode(update bool) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", f.Title},
		{"subtitle", f.Subtitle},
		{"content", f.Content},
	}
	for _, tag := range f.Tags {
		fields = append(fields, [2]string{TagsField, tag})
	}
	if update {
		fields = append(fields, [2]string{MethodOverrideField, "PUT"})
		if f.RemoveCover && f.Cover == nil {
			fields = append(fields, [2]string{"remove_cover", "1"})
		}
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", kv[0], err)
		}
	}

	if f.Cover != nil {
		ct := f.Cover.ContentType
		if ct == "" {
			ct = mimetype.Detect(f.Cover.Data).String()
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="cover"; filename="%s"`, quoteEscaper.Replace(f.Cover.Name)))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("writing cover: %w", err)
		}
		if _, err := part.Write(f.Cover.Data); err != nil {
			return nil, "", fmt.Errorf("writing cover: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
