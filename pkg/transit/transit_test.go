package transit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newSearchServer fakes the Elasticsearch search API. The product header is
// required: the v8 client rejects responses without it.
func newSearchServer(t *testing.T, handle func(index string, body map[string]any) string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if !strings.HasSuffix(r.URL.Path, "/_search") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		index := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/_search")

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(handle(index, body)))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newSearchClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Addresses:       []string{url},
		StationIndex:    "stations",
		DisruptionIndex: "paris-disruptions",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestResolveStation(t *testing.T) {
	t.Parallel()

	var gotIndex string
	var gotBody map[string]any
	ts := newSearchServer(t, func(index string, body map[string]any) string {
		gotIndex, gotBody = index, body
		return `{"hits": {"hits": [{
			"_score": 12.3,
			"_source": {"id": "stop_area:IDFM:71517", "name": "Châtelet", "coord": {"lat": "48.858", "lon": "2.347"}}
		}]}}`
	})
	client := newSearchClient(t, ts.URL)

	station, err := client.ResolveStation(context.Background(), "Chatele")
	if err != nil {
		t.Fatalf("ResolveStation: %v", err)
	}
	if station.ID != "stop_area:IDFM:71517" || station.Name != "Châtelet" {
		t.Fatalf("got station %+v", station)
	}
	if station.Coord.Lat != "48.858" || station.Coord.Lon != "2.347" {
		t.Fatalf("got coordinates %+v", station.Coord)
	}

	if gotIndex != "stations" {
		t.Fatalf("got index %q", gotIndex)
	}
	// Fuzzy single-hit match on the name field.
	if gotBody["size"] != float64(1) {
		t.Fatalf("got size %v", gotBody["size"])
	}
	match := gotBody["query"].(map[string]any)["match"].(map[string]any)["name"].(map[string]any)
	if match["query"] != "Chatele" || match["fuzziness"] != "AUTO" || match["operator"] != "and" {
		t.Fatalf("got match clause %v", match)
	}
}

func TestResolveStationNotFound(t *testing.T) {
	t.Parallel()

	ts := newSearchServer(t, func(_ string, _ map[string]any) string {
		return `{"hits": {"hits": []}}`
	})
	client := newSearchClient(t, ts.URL)

	_, err := client.ResolveStation(context.Background(), "Atlantis")
	if !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("got %v, want ErrStationNotFound", err)
	}

	// Blank names short-circuit without a search.
	if _, err := client.ResolveStation(context.Background(), "  "); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("blank name: got %v, want ErrStationNotFound", err)
	}
}

func TestSearchDisruptions(t *testing.T) {
	t.Parallel()

	var gotIndex string
	var gotBody map[string]any
	ts := newSearchServer(t, func(index string, body map[string]any) string {
		gotIndex, gotBody = index, body
		return `{"hits": {"hits": [
			{"_score": 0.91, "_source": {"title": "Ligne 14", "description": "Traffic interrompu", "severity": "bloquante", "impact": "14"}},
			{"_score": 0.82, "_source": {"title": "Ligne 4", "description": "Ralentissements", "severity": "perturbée", "impact": "4"}}
		]}}`
	})
	client := newSearchClient(t, ts.URL)

	hits, err := client.SearchDisruptions(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("SearchDisruptions: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Title != "Ligne 14" || hits[0].Score != 0.91 {
		t.Fatalf("got first hit %+v", hits[0])
	}

	if gotIndex != "paris-disruptions" {
		t.Fatalf("got index %q", gotIndex)
	}
	knn := gotBody["knn"].(map[string]any)
	if knn["field"] != "embedding_vector" || knn["k"] != float64(3) || knn["num_candidates"] != float64(50) {
		t.Fatalf("got knn clause %v", knn)
	}
}

func TestSearchDisruptionsEmptyVector(t *testing.T) {
	t.Parallel()

	ts := newSearchServer(t, func(_ string, _ map[string]any) string { return `{}` })
	client := newSearchClient(t, ts.URL)

	if _, err := client.SearchDisruptions(context.Background(), nil, 3); err == nil {
		t.Fatal("empty vector accepted")
	}
}

func TestFormatDisruptions(t *testing.T) {
	t.Parallel()

	got := FormatDisruptions([]Disruption{
		{Title: "Travaux", Description: "Station fermée", Severity: "bloquante", Impact: "14"},
	})
	for _, want := range []string{
		"Here are the active disruptions found:",
		"1. [Line 14] Travaux",
		"Details: Station fermée",
		"Severity: bloquante",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	if got := FormatDisruptions(nil); got != "No active disruptions found regarding your query." {
		t.Fatalf("got %q", got)
	}
}
