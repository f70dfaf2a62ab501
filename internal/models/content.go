package models

import (
	"errors"
	"fmt"
	"net/url"
)

// ContentKind tags the variant held by SubmissionContent
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentCode       ContentKind = "code"
	ContentFile       ContentKind = "file"
	ContentURL        ContentKind = "url"
	ContentMultimedia ContentKind = "multimedia"
)

// SubmissionContent is a tagged union; only the field matching Kind is set
type SubmissionContent struct {
	Kind  ContentKind  `json:"kind"`
	Text  *TextContent `json:"text,omitempty"`
	Code  *CodeContent `json:"code,omitempty"`
	Files []FileRef    `json:"files,omitempty"`
	Link  *LinkContent `json:"link,omitempty"`
	Media []MediaItem  `json:"media,omitempty"`
	Notes string       `json:"notes,omitempty"`
}

// TextContent is a free-text answer
type TextContent struct {
	Body string `json:"body"`
}

// CodeContent is a source-code solution
type CodeContent struct {
	Language string `json:"language"`
	Source   string `json:"source"`
}

// FileRef points at an uploaded attachment
type FileRef struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// LinkContent points at an external deliverable
type LinkContent struct {
	URL string `json:"url"`
}

// MediaItem is one piece of audio/video/image content
type MediaItem struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// Validate checks that the variant selected by Kind is present and well formed
func (c SubmissionContent) Validate() error {
	switch c.Kind {
	case ContentText:
		if c.Text == nil || c.Text.Body == "" {
			return errors.New("text content requires a body")
		}
	case ContentCode:
		if c.Code == nil || c.Code.Source == "" {
			return errors.New("code content requires source")
		}
	case ContentFile:
		if len(c.Files) == 0 {
			return errors.New("file content requires at least one file")
		}
		for i, f := range c.Files {
			if f.Name == "" {
				return fmt.Errorf("file %d: name is required", i)
			}
			if err := validateHTTPURL(f.URL); err != nil {
				return fmt.Errorf("file %d: %w", i, err)
			}
		}
	case ContentURL:
		if c.Link == nil {
			return errors.New("url content requires a link")
		}
		if err := validateHTTPURL(c.Link.URL); err != nil {
			return err
		}
	case ContentMultimedia:
		if len(c.Media) == 0 {
			return errors.New("multimedia content requires at least one item")
		}
		for i, m := range c.Media {
			if err := validateHTTPURL(m.URL); err != nil {
				return fmt.Errorf("media %d: %w", i, err)
			}
		}
	case "":
		return errors.New("content kind is required")
	default:
		return fmt.Errorf("unknown content kind: %s", c.Kind)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid url: %q", raw)
	}
	return nil
}
