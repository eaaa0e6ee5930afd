package notes

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Attachment describes a file referenced by the source message.
type Attachment struct {
	Name     string
	FileType string
}

// Input carries everything the formatter needs. The approval time is an
// explicit parameter so the output is stable for identical inputs.
type Input struct {
	ChannelName string
	AuthorName  string
	ReactorName string
	Permalink   string
	RawText     string
	Attachments []Attachment
	ApprovedAt  time.Time
}

var (
	trailingSpacePattern = regexp.MustCompile(`[ \t]+\n`)
	blankRunPattern      = regexp.MustCompile(`\n{3,}`)
)

// Format renders the canonical note body submitted to the CRM.
func Format(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Approved in #%s\n", in.ChannelName)
	fmt.Fprintf(&b, "Author: %s\n", in.AuthorName)
	fmt.Fprintf(&b, "Approved by: %s\n", in.ReactorName)
	fmt.Fprintf(&b, "When: %s\n", in.ApprovedAt.UTC().Format("January 2, 2006, 3:04PM MST"))
	if in.Permalink != "" {
		fmt.Fprintf(&b, "Link: %s\n", in.Permalink)
	}

	b.WriteString("\n")
	b.WriteString(CleanText(in.RawText))
	b.WriteString("\n")

	if len(in.Attachments) > 0 {
		b.WriteString("\nAttachments:\n")
		for _, att := range in.Attachments {
			fmt.Fprintf(&b, "- %s (%s)\n", att.Name, att.FileType)
		}
	}

	return b.String()
}

// CleanText normalizes Slack message text for the note body: decodes the
// three HTML entities Slack escapes, strips trailing whitespace before
// newlines, collapses runs of blank lines, and trims the result. Empty text
// renders as a literal placeholder.
func CleanText(text string) string {
	// &amp; last, so "&amp;lt;" does not double-decode.
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")

	text = trailingSpacePattern.ReplaceAllString(text, "\n")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return "(no text)"
	}
	return text
}

// Describe renders an attachment list for logging and thread replies.
func Describe(attachments []Attachment) []string {
	var descriptions []string
	for _, att := range attachments {
		descriptions = append(descriptions, fmt.Sprintf("%s (%s)", att.Name, att.FileType))
	}
	return descriptions
}
