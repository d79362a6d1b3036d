// Package notify delivers matched jobs to the user.
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ashevtsov/jobsieve/internal/job"
)

const maxEvidenceItems = 3

// Notifier dispatches a batch of matched jobs and reports how many were
// delivered.
type Notifier interface {
	Notify(jobs []*job.Posting) (int, error)
}

// BuildDigest renders the matched jobs as a compact HTML email body.
func BuildDigest(jobs []*job.Posting) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><body>\n")
	fmt.Fprintf(&b, "<h2>Job Match Report</h2>\n<p>%s &middot; %d match(es)</p>\n",
		time.Now().Format("2006-01-02"), len(jobs))

	for i, p := range jobs {
		fmt.Fprintf(&b, "<div style=\"margin:16px 0;padding:12px;border:1px solid #ddd;\">\n")
		fmt.Fprintf(&b, "<h3>%d. <a href=%q>%s</a></h3>\n", i+1, p.Link, html.EscapeString(p.Title))
		meta := html.EscapeString(p.Company)
		if p.Location != "" {
			meta += " &bull; " + html.EscapeString(p.Location)
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", meta)
		fmt.Fprintf(&b, "<p><strong>Match %d/100</strong> &mdash; %s</p>\n", p.Score, html.EscapeString(p.Summary))

		if r := p.Report; r != nil {
			writeEvidence(&b, "Why you fit", r.StrongMatches, func(e job.Evidence) string {
				return e.Requirement + ": " + e.Evidence
			})
			writeEvidence(&b, "Partial matches", r.PartialMatches, func(e job.Evidence) string {
				s := e.Requirement + ": " + e.Evidence
				if e.Gap != "" {
					s += " (" + e.Gap + ")"
				}
				return s
			})
			writeEvidence(&b, "Gaps", r.Gaps, func(e job.Evidence) string {
				reason := e.Reason
				if reason == "" {
					reason = e.Gap
				}
				return e.Requirement + ": " + reason
			})
			if len(r.Suggestions) > 0 {
				b.WriteString("<p><strong>CV suggestions</strong></p>\n<ul>\n")
				for _, s := range capItems(r.Suggestions) {
					fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(s))
				}
				b.WriteString("</ul>\n")
			}
		}

		fmt.Fprintf(&b, "<p><a href=%q>Apply</a></p>\n</div>\n", p.Link)
	}

	b.WriteString("</body></html>\n")
	return b.String()
}

func writeEvidence(b *strings.Builder, title string, items []job.Evidence, format func(job.Evidence) string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<p><strong>%s</strong></p>\n<ul>\n", title)
	for _, e := range capItems(items) {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(format(e)))
	}
	b.WriteString("</ul>\n")
}

func capItems[T any](items []T) []T {
	if len(items) > maxEvidenceItems {
		return items[:maxEvidenceItems]
	}
	return items
}
