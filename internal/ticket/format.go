package ticket

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDescriptionChars bounds the rendered description.
	MaxDescriptionChars = 5000
	// MaxCommentChars bounds each rendered comment body.
	MaxCommentChars = 1000

	truncationMarker = "..."
)

// Format renders a ticket into the plain-text context block given to the
// model. The output depends only on r: fields appear in a fixed order and
// empty fields are left out.
func Format(r *Record) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Key", r.Key)
	add("Summary", r.Summary)
	add("Issue Type", r.IssueType)
	add("Status", r.Status)
	add("Resolution", r.Resolution.Name)
	add("Resolution Description", r.Resolution.Description)
	add("Priority", r.Priority)
	add("Reporter", r.Reporter)
	add("Assignee", r.Assignee)
	add("Created", r.Created)
	add("Updated", r.Updated)
	add("Resolved", r.Resolved)
	add("Labels", strings.Join(r.Labels, ", "))
	add("Components", strings.Join(r.Components, ", "))

	if len(r.Attachments) > 0 {
		lines = append(lines, fmt.Sprintf("Attachments (%d):", len(r.Attachments)))
		for _, a := range r.Attachments {
			lines = append(lines, "- "+formatAttachment(a))
		}
	}

	if r.Description != "" {
		lines = append(lines, "Description:", truncate(r.Description, MaxDescriptionChars))
	}

	if len(r.Comments) > 0 {
		lines = append(lines, fmt.Sprintf("Comments (%d):", len(r.Comments)))
		for _, c := range r.Comments {
			lines = append(lines, formatComment(c))
		}
	}

	return strings.Join(lines, "\n")
}

func formatComment(c Comment) string {
	author := c.Author
	if author == "" {
		author = "Unknown"
	}
	head := "- " + author
	if c.Created != "" {
		head += " (" + c.Created + ")"
	}
	return head + ": " + truncate(strings.TrimSpace(c.Body), MaxCommentChars)
}

func formatAttachment(a Attachment) string {
	parts := []string{a.Filename}
	if a.Size > 0 {
		parts = append(parts, HumanSize(a.Size))
	}
	if a.MimeType != "" {
		parts = append(parts, a.MimeType)
	}
	if a.Author != "" {
		parts = append(parts, "by "+a.Author)
	}
	if a.Created != "" {
		parts = append(parts, a.Created)
	}
	return strings.Join(parts, " - ")
}

// HumanSize renders a byte count as B, KB or MB using integer division.
func HumanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%dKB", n/1024)
	default:
		return fmt.Sprintf("%dMB", n/(1024*1024))
	}
}

// truncate cuts s to at most limit characters (runes) and appends a marker
// when anything was removed.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncationMarker
}
