package extract

import (
	"regexp"
	"strings"
)

var reViewURL = regexp.MustCompile(`(https://www\.linkedin\.com/(?:comm/)?jobs/view/\d+)`)

// CanonicalLink strips tracking and query parameters from a job posting URL,
// keeping only the path-identified resource. The canonical link is the unique
// identity of a posting everywhere in the pipeline; the function is idempotent.
func CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if m := reViewURL.FindString(raw); m != "" {
		return m
	}

	// Relative link from the same email template.
	if strings.HasPrefix(raw, "/comm/jobs/view/") || strings.HasPrefix(raw, "/jobs/view/") {
		raw = "https://www.linkedin.com" + raw
	}

	if i := strings.IndexByte(raw, '?'); i != -1 {
		raw = raw[:i]
	}
	return raw
}
