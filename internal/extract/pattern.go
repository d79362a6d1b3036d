package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/ashevtsov/jobsieve/internal/job"
)

var (
	reJobAnchor = regexp.MustCompile(`href="(https://www\.linkedin\.com/(?:comm/)?jobs/view/\d+[^"]*)"[^>]*>([^<]+)</a>`)
	reTags      = regexp.MustCompile(`<[^>]+>`)
	reNoise     = regexp.MustCompile(`[\d";>\s]+`)
)

// boilerplate phrases that trail the location text in alert templates; the
// location is truncated at the first occurrence of any of them.
var locationStops = []string{"Easy Apply", "Save", "See all jobs", "Install"}

// patternStrategy scans raw markup for job-view anchors and recovers company
// and location from the text window that follows each matched title. It is
// the primary strategy because current alert emails are table soup with no
// usable DOM structure around the posting rows.
type patternStrategy struct{}

func newPatternStrategy() *patternStrategy { return &patternStrategy{} }

func (s *patternStrategy) Name() string { return "pattern" }

func (s *patternStrategy) TryExtract(markup string) []*job.Posting {
	matches := reJobAnchor.FindAllStringSubmatch(markup, -1)

	out := make([]*job.Posting, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(html.UnescapeString(m[2]))
		if title == "" {
			continue
		}

		link := CanonicalLink(m[1])
		if link == "" {
			continue
		}

		company, location := companyLocationNear(markup, title)
		out = append(out, &job.Posting{
			Title:    title,
			Company:  company,
			Location: location,
			Link:     link,
		})
	}
	return out
}

// companyLocationNear looks for "<title> ... Company · Location" in the
// markup window right after the title. Missing pieces yield empty strings.
func companyLocationNear(markup, title string) (company, location string) {
	pattern, err := regexp.Compile(regexp.QuoteMeta(title) + `[^·]*·[^<]{0,150}`)
	if err != nil {
		return "", ""
	}

	window := pattern.FindString(markup)
	if window == "" {
		return "", ""
	}

	parts := strings.SplitN(window, "·", 2)
	if len(parts) < 2 {
		return "", ""
	}

	company = cleanCompany(strings.Replace(parts[0], title, "", 1))
	location = cleanLocation(parts[1])
	return company, location
}

func cleanCompany(s string) string {
	s = html.UnescapeString(s)
	s = reNoise.ReplaceAllString(s, " ")
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	// The window between title and delimiter is mostly markup debris; the
	// company name is the last token run before the delimiter.
	return words[len(words)-1]
}

func cleanLocation(s string) string {
	s = reTags.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '<'); i != -1 {
		s = s[:i]
	}
	s = html.UnescapeString(s)
	for _, stop := range locationStops {
		if i := strings.Index(s, stop); i != -1 {
			s = s[:i]
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
