// Package transit queries the externally maintained station and disruption
// search indexes. The indexes are filled by a separate ingestion pipeline;
// this package only reads them.
package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

var ErrStationNotFound = errors.New("no station matches that name")

type Config struct {
	Addresses       []string `envconfig:"ADDRESSES" split_words:"true" default:"http://elasticsearch:9200"`
	StationIndex    string   `envconfig:"STATION_INDEX" split_words:"true" default:"stations"`
	DisruptionIndex string   `envconfig:"DISRUPTION_INDEX" split_words:"true" default:"paris-disruptions"`
}

// Coord is a station position as stored in the index. Navitia delivers
// coordinates as decimal strings and the sink keeps them that way.
type Coord struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Station is a resolved stop area.
type Station struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Coord Coord  `json:"coordinates"`
}

// Disruption is one entry from the live disruption index.
type Disruption struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Impact      string  `json:"impact"`
	Score       float64 `json:"-"`
}

// Client wraps the Elasticsearch search API for the two transit indexes.
type Client struct {
	es              *elasticsearch.Client
	stationIndex    string
	disruptionIndex string
}

func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch addresses are required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	stationIndex := strings.TrimSpace(cfg.StationIndex)
	if stationIndex == "" {
		stationIndex = "stations"
	}
	disruptionIndex := strings.TrimSpace(cfg.DisruptionIndex)
	if disruptionIndex == "" {
		disruptionIndex = "paris-disruptions"
	}

	return &Client{
		es:              es,
		stationIndex:    stationIndex,
		disruptionIndex: disruptionIndex,
	}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ResolveStation finds the best station match for a fuzzy, possibly typoed
// name. The searching itself is delegated to the index's fuzzy matcher.
func (c *Client) ResolveStation(ctx context.Context, name string) (Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Station{}, ErrStationNotFound
	}

	query := map[string]any{
		"size": 1,
		"query": map[string]any{
			"match": map[string]any{
				"name": map[string]any{
					"query":     name,
					"fuzziness": "AUTO",
					"operator":  "and",
				},
			},
		},
	}

	parsed, err := c.search(ctx, c.stationIndex, query)
	if err != nil {
		return Station{}, err
	}
	if len(parsed.Hits.Hits) == 0 {
		return Station{}, fmt.Errorf("%w: %q", ErrStationNotFound, name)
	}

	var doc struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Coord Coord  `json:"coord"`
	}
	if err := json.Unmarshal(parsed.Hits.Hits[0].Source, &doc); err != nil {
		return Station{}, fmt.Errorf("decode station document: %w", err)
	}

	return Station{ID: doc.ID, Name: doc.Name, Coord: doc.Coord}, nil
}

// SearchDisruptions runs a kNN search over the disruption index with the
// given query embedding. k results are requested from 50 candidates,
// mirroring the index's ingestion-side tuning.
func (c *Client) SearchDisruptions(ctx context.Context, vector []float32, k int) ([]Disruption, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	if k <= 0 {
		k = 3
	}

	query := map[string]any{
		"knn": map[string]any{
			"field":          "embedding_vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": 50,
		},
	}

	parsed, err := c.search(ctx, c.disruptionIndex, query)
	if err != nil {
		return nil, err
	}

	out := make([]Disruption, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var d Disruption
		if err := json.Unmarshal(hit.Source, &d); err != nil {
			return nil, fmt.Errorf("decode disruption document: %w", err)
		}
		d.Score = hit.Score
		out = append(out, d)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, index string, query map[string]any) (*searchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("execute search on %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search on %s failed: %s", index, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &parsed, nil
}

// FormatDisruptions renders disruption hits as the plain-text block handed
// to the language model.
func FormatDisruptions(hits []Disruption) string {
	if len(hits) == 0 {
		return "No active disruptions found regarding your query."
	}

	var b strings.Builder
	b.WriteString("Here are the active disruptions found:\n")
	for i, d := range hits {
		fmt.Fprintf(&b, "%d. [Line %s] %s\n", i+1, d.Impact, d.Title)
		fmt.Fprintf(&b, "   Details: %s\n", d.Description)
		fmt.Fprintf(&b, "   Severity: %s\n\n", d.Severity)
	}
	return b.String()
}
