// ABOUTME: The blog create/edit form model and its conversion to the backend payload.
// ABOUTME: Content is supplied separately at submission time, already resolved.

package blog

import (
	"strings"

	"github.com/2389-research/listingdesk/backend"
)

// Form holds the non-content fields of the blog editor.
type Form struct {
	Title    string
	Subtitle string
	Tags     []string
	Cover    *backend.File
	// CoverURL is the existing cover when editing.
	CoverURL    string
	RemoveCover bool
}

// FormFromPost seeds a Form from a post loaded for editing.
func FormFromPost(p *backend.Post) Form {
	return Form{
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Tags:     AddTag(nil, p.Tags...),
		CoverURL: p.CoverURL,
	}
}

// Payload builds the backend form with content as the content field.
func (f Form) Payload(content string) backend.PostForm {
	return backend.PostForm{
		Title:       strings.TrimSpace(f.Title),
		Subtitle:    strings.TrimSpace(f.Subtitle),
		Content:     content,
		Tags:        AddTag(nil, f.Tags...),
		Cover:       f.Cover,
		RemoveCover: f.RemoveCover && f.Cover == nil,
	}
}
