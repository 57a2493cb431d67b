package swappable

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Status describes the currently published instance of one singleton.
type Status struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Generation  uint64    `json:"generation"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Status returns a status snapshot for this singleton.
func (s *Singleton[Opt, T]) Status() Status {
	cur := s.current.Load()
	return Status{
		Name:        s.name,
		Type:        typeName[T](),
		Generation:  cur.generation,
		PublishedAt: cur.publishedAt,
	}
}

// FormatStatus renders statuses as an aligned text table.
func FormatStatus(statuses []Status) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tGENERATION\tPUBLISHED")
	for _, st := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", st.Name, st.Type, st.Generation, st.PublishedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	return b.String()
}
