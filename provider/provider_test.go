package provider_test

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/provider"
)

type handler = provider.RequestResponse[string, string]

func echoFactory(cfg map[string]any) (handler, error) {
	name, _ := cfg["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	return &echoProvider{name: name}, nil
}

func TestRegistry(t *testing.T) {
	reg := provider.NewRegistry[handler]()
	reg.RegisterFactory("echo", echoFactory)
	reg.RegisterFactory("alpha", echoFactory)

	p, err := reg.Create("echo", map[string]any{"name": "e1"})
	if err != nil || p.Name() != "e1" {
		t.Fatalf("Create = %v, %v", p, err)
	}
	if _, err := reg.Create("missing", nil); err == nil {
		t.Error("expected error for unregistered factory")
	}
	if got := reg.List(); fmt.Sprint(got) != "[alpha echo]" {
		t.Errorf("List = %v", got)
	}
}

func TestPrioritySelector(t *testing.T) {
	providers := map[string]handler{
		"primary":   &echoProvider{name: "primary", unavailable: true},
		"secondary": &echoProvider{name: "secondary"},
	}
	sel := &provider.PrioritySelector[handler]{Priority: []string{"primary", "secondary"}}
	p, err := sel.Select(context.Background(), providers)
	if err != nil || p.Name() != "secondary" {
		t.Fatalf("Select = %v, %v", p, err)
	}

	providers["secondary"].(*echoProvider).unavailable = true
	if _, err := sel.Select(context.Background(), providers); err == nil {
		t.Error("expected error when none available")
	}
}

func TestRoundRobinSelector(t *testing.T) {
	providers := map[string]handler{
		"a": &echoProvider{name: "a"},
		"b": &echoProvider{name: "b"},
	}
	sel := &provider.RoundRobinSelector[handler]{}
	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		p, err := sel.Select(context.Background(), providers)
		if err != nil {
			t.Fatal(err)
		}
		seen[p.Name()]++
	}
	if seen["a"] != 2 || seen["b"] != 2 {
		t.Errorf("distribution = %v", seen)
	}
	if _, err := sel.Select(context.Background(), map[string]handler{}); err == nil {
		t.Error("expected error for empty set")
	}
}

func TestManagerRouted(t *testing.T) {
	reg := provider.NewRegistry[handler]()
	reg.RegisterFactory("echo", echoFactory)
	mgr := provider.NewManager(reg, &provider.PrioritySelector[handler]{Priority: []string{"local", "remote"}})

	if err := mgr.Initialize("remote", "echo", map[string]any{"name": "remote"}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Initialize("broken", "echo", nil); err == nil {
		t.Error("expected factory error")
	}
	local := &echoProvider{name: "local"}
	mgr.Add("local", local)

	if got := mgr.Available(); fmt.Sprint(got) != "[local remote]" {
		t.Errorf("Available = %v", got)
	}

	routed := provider.Routed[string, string]("embeddings", mgr)
	if _, err := routed.Execute(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if local.calls.Load() != 1 {
		t.Error("expected priority backend to serve the call")
	}

	local.unavailable = true
	out, err := routed.Execute(context.Background(), "y")
	if err != nil || out != "echo:y" {
		t.Fatalf("fallback = %q, %v", out, err)
	}
}

func TestRouted_NoBackend(t *testing.T) {
	mgr := provider.NewManager(provider.NewRegistry[handler](), &provider.RoundRobinSelector[handler]{})
	routed := provider.Routed[string, string]("transcription", mgr)
	if routed.IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
	_, err := routed.Execute(context.Background(), "x")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}
