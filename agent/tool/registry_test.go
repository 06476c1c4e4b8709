package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

func noopHandler(_ context.Context, _ map[string]any) (any, error) {
	return "ok", nil
}

func stationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"station_name": map[string]any{"type": "string"},
		},
		"required": []string{"station_name"},
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(Spec{
		Name:       "get_station_id",
		Parameters: stationSchema(),
		Handler:    noopHandler,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Has("get_station_id") {
		t.Fatal("registered tool not found")
	}
	if r.Has("get_itinerary") {
		t.Fatal("unregistered tool reported present")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	spec := Spec{Name: "get_station_id", Handler: noopHandler}
	if err := r.Register(spec); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(spec); !errors.Is(err, contractx.ErrDuplicateTool) {
		t.Fatalf("got %v, want ErrDuplicateTool", err)
	}
}

func TestRegistryValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(Spec{Name: "", Handler: noopHandler}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty name: got %v, want ErrValidation", err)
	}
	if err := r.Register(Spec{Name: "no_handler"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("nil handler: got %v, want ErrValidation", err)
	}
}

func TestRegistryBadSchemaFailsRegistration(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(Spec{
		Name:       "broken",
		Parameters: map[string]any{"type": 42}, // "type" must be a string or array
		Handler:    noopHandler,
	})
	if err == nil {
		t.Fatal("expected schema compile failure")
	}
	if r.Has("broken") {
		t.Fatal("tool registered despite broken schema")
	}
}

func TestRegistrySchemasSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"get_station_id", "get_disruption_context", "get_itinerary"} {
		r.MustRegister(Spec{Name: name, Description: "desc " + name, Handler: noopHandler})
	}

	schemas := r.Schemas()
	want := []string{"get_disruption_context", "get_itinerary", "get_station_id"}
	if len(schemas) != len(want) {
		t.Fatalf("got %d schemas, want %d", len(schemas), len(want))
	}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Fatalf("schema %d: got %s, want %s", i, schemas[i].Name, name)
		}
	}
}
