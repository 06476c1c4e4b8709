package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
	"github.com/fasfous92/public-transport-RAG/pkg/nvidia"
	primx "github.com/fasfous92/public-transport-RAG/pkg/prim"
	transitx "github.com/fasfous92/public-transport-RAG/pkg/transit"
)

type fakeStations struct {
	stations map[string]transitx.Station
}

func (f *fakeStations) ResolveStation(_ context.Context, name string) (transitx.Station, error) {
	s, ok := f.stations[name]
	if !ok {
		return transitx.Station{}, transitx.ErrStationNotFound
	}
	return s, nil
}

type fakeJourneys struct {
	resp *primx.JourneysResponse
	err  error

	gotFrom primx.Coord
	gotTo   primx.Coord
}

func (f *fakeJourneys) Journeys(_ context.Context, from, to primx.Coord) (*primx.JourneysResponse, error) {
	f.gotFrom, f.gotTo = from, to
	return f.resp, f.err
}

type fakeDisruptions struct {
	hits      []transitx.Disruption
	gotVector []float32
	gotK      int
}

func (f *fakeDisruptions) SearchDisruptions(_ context.Context, vector []float32, k int) ([]transitx.Disruption, error) {
	f.gotVector, f.gotK = vector, k
	return f.hits, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, _ nvidia.InputType) ([]float32, error) {
	return f.vector, f.err
}

func transitFixture() (TransitDeps, *fakeJourneys, *fakeDisruptions) {
	journeys := &fakeJourneys{resp: &primx.JourneysResponse{}}
	disruptions := &fakeDisruptions{hits: []transitx.Disruption{
		{Title: "Ligne 14", Description: "Traffic interrompu", Severity: "blocking"},
	}}
	deps := TransitDeps{
		Stations: &fakeStations{stations: map[string]transitx.Station{
			"Chatelet":   {ID: "stop:chatelet", Name: "Châtelet", Coord: transitx.Coord{Lat: "48.858", Lon: "2.347"}},
			"La Defense": {ID: "stop:defense", Name: "La Défense", Coord: transitx.Coord{Lat: "48.891", Lon: "2.237"}},
		}},
		Journeys:    journeys,
		Disruptions: disruptions,
		Embeddings:  &fakeEmbedder{vector: []float32{0.1, 0.2}},
	}
	return deps, journeys, disruptions
}

func newTransitExecutor(t *testing.T, deps TransitDeps) *Executor {
	t.Helper()
	r := NewRegistry()
	if err := RegisterTransitTools(r, deps); err != nil {
		t.Fatalf("RegisterTransitTools: %v", err)
	}
	return NewExecutor(r, zerolog.Nop())
}

func TestRegisterTransitTools(t *testing.T) {
	t.Parallel()

	deps, _, _ := transitFixture()
	r := NewRegistry()
	if err := RegisterTransitTools(r, deps); err != nil {
		t.Fatalf("RegisterTransitTools: %v", err)
	}

	for _, name := range []string{ToolGetStationID, ToolGetItinerary, ToolGetDisruptionContext} {
		if !r.Has(name) {
			t.Fatalf("tool %s not registered", name)
		}
	}
}

func TestRegisterTransitToolsMissingDeps(t *testing.T) {
	t.Parallel()

	deps, _, _ := transitFixture()
	deps.Embeddings = nil
	if err := RegisterTransitTools(NewRegistry(), deps); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestGetStationID(t *testing.T) {
	t.Parallel()

	deps, _, _ := transitFixture()
	exec := newTransitExecutor(t, deps)

	result := exec.Execute(context.Background(), contractx.ToolCall{
		ID:        "c1",
		Name:      ToolGetStationID,
		Arguments: json.RawMessage(`{"station_name":"Chatelet"}`),
	})
	if !result.OK() {
		t.Fatalf("got error result: %s", result.ErrorDetail)
	}
	station, ok := result.Payload.(transitx.Station)
	if !ok {
		t.Fatalf("payload is %T, want Station", result.Payload)
	}
	if station.ID != "stop:chatelet" {
		t.Fatalf("got station %q", station.ID)
	}
}

func TestGetItinerary(t *testing.T) {
	t.Parallel()

	deps, journeys, _ := transitFixture()
	exec := newTransitExecutor(t, deps)

	result := exec.Execute(context.Background(), contractx.ToolCall{
		ID:        "c1",
		Name:      ToolGetItinerary,
		Arguments: json.RawMessage(`{"start_station":"Chatelet","end_station":"La Defense"}`),
	})
	if !result.OK() {
		t.Fatalf("got error result: %s", result.ErrorDetail)
	}
	if journeys.gotFrom.Lon != "2.347" || journeys.gotTo.Lon != "2.237" {
		t.Fatalf("coordinates not forwarded: from=%+v to=%+v", journeys.gotFrom, journeys.gotTo)
	}
	if result.Payload != "No journeys found." {
		t.Fatalf("got payload %v", result.Payload)
	}
}

func TestGetItineraryUnknownStation(t *testing.T) {
	t.Parallel()

	deps, _, _ := transitFixture()
	exec := newTransitExecutor(t, deps)

	result := exec.Execute(context.Background(), contractx.ToolCall{
		ID:        "c1",
		Name:      ToolGetItinerary,
		Arguments: json.RawMessage(`{"start_station":"Atlantis","end_station":"La Defense"}`),
	})
	if result.OK() {
		t.Fatal("unknown station should fail")
	}
	if !strings.Contains(result.ErrorDetail, `could not find coordinates for "Atlantis"`) {
		t.Fatalf("unexpected detail %q", result.ErrorDetail)
	}
}

func TestGetDisruptionContext(t *testing.T) {
	t.Parallel()

	deps, _, disruptions := transitFixture()
	exec := newTransitExecutor(t, deps)

	result := exec.Execute(context.Background(), contractx.ToolCall{
		ID:        "c1",
		Name:      ToolGetDisruptionContext,
		Arguments: json.RawMessage(`{"user_query":"Line 14 status"}`),
	})
	if !result.OK() {
		t.Fatalf("got error result: %s", result.ErrorDetail)
	}
	if disruptions.gotK != 3 {
		t.Fatalf("got k=%d, want 3", disruptions.gotK)
	}
	if len(disruptions.gotVector) != 2 {
		t.Fatalf("query vector not forwarded: %v", disruptions.gotVector)
	}
	text, ok := result.Payload.(string)
	if !ok || !strings.Contains(text, "Ligne 14") {
		t.Fatalf("unexpected payload %v", result.Payload)
	}
}

func TestGetDisruptionContextEmbeddingFailure(t *testing.T) {
	t.Parallel()

	deps, _, _ := transitFixture()
	deps.Embeddings = &fakeEmbedder{err: errors.New("nim unavailable")}
	exec := newTransitExecutor(t, deps)

	result := exec.Execute(context.Background(), contractx.ToolCall{
		ID:        "c1",
		Name:      ToolGetDisruptionContext,
		Arguments: json.RawMessage(`{"user_query":"Line 14 status"}`),
	})
	if result.OK() {
		t.Fatal("embedding failure should fail the tool")
	}
	if !strings.Contains(result.ErrorDetail, "could not generate embedding") {
		t.Fatalf("unexpected detail %q", result.ErrorDetail)
	}
}
