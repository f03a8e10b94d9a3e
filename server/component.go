package server

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

var systemPaths = map[string]bool{"/health": true, "/ready": true, "/info": true, "/metrics": true}

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

func NewComponent(s *Server) *Component { return &Component{server: s} }

func (c *Component) Name() string                    { return componentName }
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }
func (c *Component) Stop(ctx context.Context) error  { return c.server.Stop(ctx) }

// Health is unhealthy until the listener is bound.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if !c.server.Running() {
		h.Status, h.Message = component.StatusUnhealthy, "listener not bound"
	}
	return h
}

func (c *Component) Describe() component.Description {
	cfg := c.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s h2c timeout=%s body<=%s", c.server.Addr(), cfg.RequestTimeout, cfg.MaxBodySize),
		Port:    cfg.Port,
	}
}

// Routes lists the API routes by path, then the system routes.
func (c *Component) Routes() []component.Route {
	info := c.server.engine.Routes()
	slices.SortFunc(info, func(a, b gin.RouteInfo) int {
		return cmp.Or(
			compareBool(systemPaths[a.Path], systemPaths[b.Path]),
			strings.Compare(a.Path, b.Path),
			cmp.Compare(methodRank(a.Method), methodRank(b.Method)),
		)
	})

	routes := make([]component.Route, len(info))
	for i, r := range info {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " (system)"
		}
		routes[i] = component.Route{Method: r.Method, Path: r.Path, Handler: handler}
	}
	return routes
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

var methodRanks = map[string]int{http.MethodGet: 1, http.MethodHead: 2, http.MethodPost: 3}

func methodRank(method string) int {
	if r, ok := methodRanks[method]; ok {
		return r
	}
	return len(methodRanks) + 1
}

// formatHandlerName turns Gin's handler symbol into a short label:
// "github.com/kbukum/endpoints/openai.(*Handlers).Embeddings-fm" becomes
// "Handlers.Embeddings" and a closure such as "endpoint.Health.func1"
// becomes "health".
func formatHandlerName(symbol string) string {
	name := strings.TrimSuffix(symbol, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	if strings.HasPrefix(parts[len(parts)-1], "func") {
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
		return name
	}
	if len(parts) > 1 && strings.ToLower(parts[0]) == parts[0] {
		return strings.Join(parts[1:], ".")
	}
	return name
}
