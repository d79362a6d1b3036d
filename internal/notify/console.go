package notify

import (
	"fmt"
	"io"

	"github.com/ashevtsov/jobsieve/internal/job"
)

// ConsoleNotifier prints matched jobs to a writer instead of sending
// email. Used for dry runs.
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) Notify(jobs []*job.Posting) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	fmt.Fprintf(n.out, "%d job match(es):\n", len(jobs))
	for i, p := range jobs {
		fmt.Fprintf(n.out, "%d. [%d/100] %s", i+1, p.Score, p.Title)
		if p.Company != "" {
			fmt.Fprintf(n.out, " at %s", p.Company)
		}
		if p.Location != "" {
			fmt.Fprintf(n.out, " (%s)", p.Location)
		}
		fmt.Fprintf(n.out, "\n   %s\n   %s\n", p.Summary, p.Link)
	}
	return len(jobs), nil
}
