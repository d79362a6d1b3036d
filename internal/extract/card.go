package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ashevtsov/jobsieve/internal/job"
)

// cardStrategy parses the older alert template where each posting lives in
// a semantically marked job-card container. Used only when the pattern
// scanner finds nothing.
type cardStrategy struct{}

func newCardStrategy() *cardStrategy { return &cardStrategy{} }

func (s *cardStrategy) Name() string { return "card" }

func (s *cardStrategy) TryExtract(markup string) []*job.Posting {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []*job.Posting
	doc.Find(`[data-test-id="job-card"]`).Each(func(_ int, card *goquery.Selection) {
		if p := parseCard(card); p != nil {
			out = append(out, p)
		}
	})
	return out
}

func parseCard(card *goquery.Selection) *job.Posting {
	titleLink := card.Find(`a[class*="text-color-brand"]`).First()
	if titleLink.Length() == 0 {
		return nil
	}

	title := cleanText(titleLink.Text())
	if title == "" {
		return nil
	}

	href, _ := titleLink.Attr("href")
	link := CanonicalLink(href)
	if link == "" {
		return nil
	}

	subtitle := cleanText(card.Find(`p[class*="text-system-gray"]`).First().Text())
	company, location := splitSubtitle(subtitle)

	return &job.Posting{
		Title:    title,
		Company:  company,
		Location: location,
		Link:     link,
	}
}

// splitSubtitle splits "Company · Location (Hybrid)" on the middle dot.
// Without a delimiter the whole text is treated as the company.
func splitSubtitle(text string) (company, location string) {
	if parts := strings.SplitN(text, " · ", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
