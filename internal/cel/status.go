package cel

import (
	"fmt"
	"io"
)

// WriteStatus prints the console status report. A disabled engine prints only
// the first line.
func (e *Engine) WriteStatus(w io.Writer) {
	cfg := e.cfg.Load()

	if !cfg.Enable {
		fmt.Fprintf(w, "CEL Logging: Disabled\n")
		return
	}
	fmt.Fprintf(w, "CEL Logging: Enabled\n")

	for _, name := range cfg.Events.Names() {
		fmt.Fprintf(w, "CEL Tracking Event: %s\n", name)
	}
	for _, app := range cfg.AppNames() {
		fmt.Fprintf(w, "CEL Tracking Application: %s\n", app)
	}
	for _, name := range e.backends.Names() {
		fmt.Fprintf(w, "CEL Event Subscriber: %s\n", name)
	}
}

// Status is the snapshot served by the HTTP status endpoint.
type Status struct {
	Enabled        bool             `json:"enabled"`
	Events         []string         `json:"events"`
	Applications   []string         `json:"applications"`
	Backends       []string         `json:"backends"`
	LinkedIDs      int              `json:"linkedids_active"`
	PendingDials   int              `json:"dialstatus_pending"`
	MessagesTotal  int64            `json:"messages_total"`
	MessagesByType map[string]int64 `json:"messages_by_type"`
}

// Status assembles the current engine state for the API.
func (e *Engine) Status() Status {
	cfg := e.cfg.Load()
	return Status{
		Enabled:        cfg.Enable,
		Events:         cfg.Events.Names(),
		Applications:   cfg.AppNames(),
		Backends:       e.backends.Names(),
		LinkedIDs:      e.linkedIDs.Len(),
		PendingDials:   e.dialStatus.Len(),
		MessagesTotal:  e.msgCount.Load(),
		MessagesByType: e.HandlerCounts(),
	}
}
