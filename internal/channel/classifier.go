package channel

import (
	"regexp"
	"strings"
)

// dealIDPattern matches the first "deal" followed by a digit run, any case.
var dealIDPattern = regexp.MustCompile(`(?i)deal(\d+)`)

// Classifier decides whether a channel participates in the deal-approval
// workflow and extracts the deal identifier embedded in its name.
type Classifier struct {
	reconPattern string
}

// NewClassifier creates a classifier for the given recon-channel pattern.
// The pattern is matched as a case-insensitive substring of the channel name.
func NewClassifier(reconPattern string) *Classifier {
	return &Classifier{
		reconPattern: strings.ToLower(reconPattern),
	}
}

// IsReconChannel reports whether the channel name matches the recon pattern.
func (c *Classifier) IsReconChannel(name string) bool {
	if c.reconPattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), c.reconPattern)
}

// ExtractDealID returns the digit run following the first "deal" in the
// channel name, or "" when the name carries no deal identifier. The id is
// kept string-typed; it is never validated against the CRM before use.
func (c *Classifier) ExtractDealID(name string) string {
	match := dealIDPattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}
	return match[1]
}
