// Package ticket holds the read-only ticket record handed to the pipeline
// and renders it into the deterministic text block the model sees.
package ticket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dt-pm-tools/kbagent/internal/adf"
)

// ErrMissingKey is returned when a ticket payload has no key.
var ErrMissingKey = errors.New("ticket key is required")

// Record is a resolved support ticket. It decodes from either the nested
// Jira REST shape ({"key": ..., "fields": {...}}) or a flat object carrying
// the same field names at the top level.
type Record struct {
	Key         string       `json:"key"`
	Summary     string       `json:"summary,omitempty"`
	Description string       `json:"description,omitempty"`
	Status      string       `json:"status,omitempty"`
	Resolution  Resolution   `json:"resolution"`
	Assignee    string       `json:"assignee,omitempty"`
	Reporter    string       `json:"reporter,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	IssueType   string       `json:"issuetype,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
	Components  []string     `json:"components,omitempty"`
	Created     string       `json:"created,omitempty"`
	Updated     string       `json:"updated,omitempty"`
	Resolved    string       `json:"resolutiondate,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Resolution is the resolution name plus its free-text description.
type Resolution struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Comment is a single ticket comment.
type Comment struct {
	Author  string `json:"author,omitempty"`
	Body    string `json:"body,omitempty"`
	Created string `json:"created,omitempty"`
}

// Attachment is attachment metadata only; content is never fetched.
type Attachment struct {
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Author   string `json:"author,omitempty"`
	Created  string `json:"created,omitempty"`
}

// Decode parses a ticket payload in either accepted shape.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UnmarshalJSON accepts the flat and the "fields"-nested shapes. Optional
// sub-fields of an unexpected type are treated as absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("decoding ticket: %w", err)
	}

	key := strings.TrimSpace(stringOf(root["key"]))
	if key == "" {
		return ErrMissingKey
	}

	fields := root
	if nested, ok := root["fields"].(map[string]any); ok {
		fields = nested
	}

	*r = Record{
		Key:         key,
		Summary:     stringOf(fields["summary"]),
		Description: textOf(fields["description"]),
		Status:      nameOf(fields["status"]),
		Resolution:  resolutionOf(fields["resolution"]),
		Assignee:    nameOf(fields["assignee"]),
		Reporter:    nameOf(fields["reporter"]),
		Priority:    nameOf(fields["priority"]),
		IssueType:   nameOf(fields["issuetype"]),
		Labels:      namesOf(fields["labels"]),
		Components:  namesOf(fields["components"]),
		Created:     stringOf(fields["created"]),
		Updated:     stringOf(fields["updated"]),
		Resolved:    stringOf(firstOf(fields, "resolutiondate", "resolved")),
		Comments:    commentsOf(firstOf(fields, "comment", "comments")),
		Attachments: attachmentsOf(firstOf(fields, "attachment", "attachments")),
	}
	return nil
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

// textOf returns plain text for a field that is either a string or an ADF
// document (Jira REST v3).
func textOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if !adf.IsDocument(v) {
		return ""
	}
	doc, err := adf.FromValue(v)
	if err != nil {
		return ""
	}
	return adf.Text(doc)
}

// nameOf reads a named entity that Jira renders either as a bare string or
// as an object with a display name.
func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		for _, k := range []string{"displayName", "name", "value"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func namesOf(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if name := nameOf(item); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func resolutionOf(v any) Resolution {
	switch t := v.(type) {
	case string:
		return Resolution{Name: t}
	case map[string]any:
		return Resolution{
			Name:        stringOf(t["name"]),
			Description: textOf(t["description"]),
		}
	}
	return Resolution{}
}

func commentsOf(v any) []Comment {
	// Jira nests the list under {"comments": [...]}.
	if container, ok := v.(map[string]any); ok {
		v = container["comments"]
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Comment, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Comment{
			Author:  nameOf(m["author"]),
			Body:    textOf(m["body"]),
			Created: stringOf(m["created"]),
		})
	}
	return out
}

func attachmentsOf(v any) []Attachment {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Attachment, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Attachment{
			Filename: stringOf(m["filename"]),
			Size:     sizeOf(m["size"]),
			MimeType: stringOf(m["mimeType"]),
			Author:   nameOf(m["author"]),
			Created:  stringOf(m["created"]),
		})
	}
	return out
}

func sizeOf(v any) int64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return int64(t)
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
