package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/endpoints/component"
)

// Summary prints what the service started once startup completes. Most
// entries come from components implementing component.Describable and
// component.RouteProvider; TrackInfrastructure adds the rest.
type Summary struct {
	service  string
	version  string
	duration time.Duration
	out      io.Writer
	extra    []component.Description
}

// NewSummary creates a summary that prints to os.Stdout.
func NewSummary(service, version string) *Summary {
	return &Summary{service: service, version: version, out: os.Stdout}
}

// SetOutput redirects the printed summary.
func (s *Summary) SetOutput(w io.Writer) { s.out = w }

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) { s.duration = d }

// TrackInfrastructure lists something that is not a registered component.
func (s *Summary) TrackInfrastructure(name, kind, details string, port int) {
	s.extra = append(s.extra, component.Description{Name: name, Type: kind, Details: details, Port: port})
}

func (s *Summary) collect(registry *component.Registry) ([]component.Description, []component.Route) {
	var (
		infra  []component.Description
		routes []component.Route
	)
	if registry != nil {
		for _, c := range registry.All() {
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name == "" {
					desc.Name = c.Name()
				}
				infra = append(infra, desc)
			}
			if rp, ok := c.(component.RouteProvider); ok {
				routes = append(routes, rp.Routes()...)
			}
		}
	}
	return append(infra, s.extra...), routes
}

// DisplaySummary prints infrastructure, routes and live health.
func (s *Summary) DisplaySummary(registry *component.Registry) {
	w := s.out
	infra, routes := s.collect(registry)

	fmt.Fprintf(w, "\n%s %s started in %.2fs\n\n", s.service, s.version, s.duration.Seconds())

	if len(infra) == 0 {
		fmt.Fprintln(w, "   └── No components registered")
	} else {
		fmt.Fprintln(w, "Infrastructure")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s [%s] %s: %s\n", treePrefix(i, len(infra)), d.Type, d.Name, details)
		}
		fmt.Fprintln(w)
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s -> %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
		fmt.Fprintln(w)
	}

	if registry == nil {
		return
	}
	results := registry.HealthAll(context.Background())
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(w, "Health: %s\n", component.Overall(results))
	for i, h := range results {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)),
			statusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "+"
	case component.StatusDegraded:
		return "~"
	case component.StatusUnhealthy:
		return "x"
	}
	return "?"
}
