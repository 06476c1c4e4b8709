package tool

import (
	"context"
	"fmt"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
	"github.com/fasfous92/public-transport-RAG/pkg/nvidia"
	primx "github.com/fasfous92/public-transport-RAG/pkg/prim"
	transitx "github.com/fasfous92/public-transport-RAG/pkg/transit"
)

// Tool names in the transit catalog.
const (
	ToolGetStationID         = "get_station_id"
	ToolGetItinerary         = "get_itinerary"
	ToolGetDisruptionContext = "get_disruption_context"
)

// StationResolver resolves fuzzy station names against the search index.
type StationResolver interface {
	ResolveStation(ctx context.Context, name string) (transitx.Station, error)
}

// JourneyPlanner computes routes between two coordinates.
type JourneyPlanner interface {
	Journeys(ctx context.Context, from, to primx.Coord) (*primx.JourneysResponse, error)
}

// DisruptionSearcher runs a kNN search over the disruption index.
type DisruptionSearcher interface {
	SearchDisruptions(ctx context.Context, vector []float32, k int) ([]transitx.Disruption, error)
}

// Embedder turns text into a query vector for the disruption search.
type Embedder interface {
	Embed(ctx context.Context, text string, inputType nvidia.InputType) ([]float32, error)
}

// TransitDeps are the external collaborators behind the transit tools.
type TransitDeps struct {
	Stations    StationResolver
	Journeys    JourneyPlanner
	Disruptions DisruptionSearcher
	Embeddings  Embedder
}

// RegisterTransitTools populates the registry with the three transit tools.
// Call once at startup.
func RegisterTransitTools(r *Registry, deps TransitDeps) error {
	if deps.Stations == nil || deps.Journeys == nil || deps.Disruptions == nil || deps.Embeddings == nil {
		return fmt.Errorf("%w: all transit tool dependencies are required", contractx.ErrValidation)
	}

	specs := []Spec{
		{
			Name:        ToolGetDisruptionContext,
			Description: "Get real-time Paris Metro traffic updates. Use this for questions about delays, strikes, or general traffic status.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_query": map[string]any{
						"type":        "string",
						"description": "The search topic (e.g. 'Line 14 status', 'Orly airport access')",
					},
				},
				"required": []string{"user_query"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, err := stringArg(args, "user_query")
				if err != nil {
					return nil, err
				}
				vector, err := deps.Embeddings.Embed(ctx, query, nvidia.InputTypeQuery)
				if err != nil {
					return nil, fmt.Errorf("could not generate embedding: %w", err)
				}
				if len(vector) == 0 {
					return nil, fmt.Errorf("could not generate embedding for %q", query)
				}
				hits, err := deps.Disruptions.SearchDisruptions(ctx, vector, 3)
				if err != nil {
					return nil, fmt.Errorf("retrieve disruption context: %w", err)
				}
				return transitx.FormatDisruptions(hits), nil
			},
		},
		{
			Name:        ToolGetStationID,
			Description: "Resolves a fuzzy station name (e.g., 'Gare de Lyon') to its exact API ID and coordinates. Always use this before calculating an itinerary to ensure the station exists.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"station_name": map[string]any{
						"type":        "string",
						"description": "The name of the station to look up (e.g., 'Chatelet', 'La Defense')",
					},
				},
				"required": []string{"station_name"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				name, err := stringArg(args, "station_name")
				if err != nil {
					return nil, err
				}
				station, err := deps.Stations.ResolveStation(ctx, name)
				if err != nil {
					return nil, err
				}
				return station, nil
			},
		},
		{
			Name:        ToolGetItinerary,
			Description: "Calculates the best route between two stations using the IDFM API. Requires exact station names or IDs.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_station": map[string]any{
						"type":        "string",
						"description": "The departure station name (e.g. 'Gare du Nord')",
					},
					"end_station": map[string]any{
						"type":        "string",
						"description": "The destination station name (e.g. 'Stade de France')",
					},
				},
				"required": []string{"start_station", "end_station"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				start, err := stringArg(args, "start_station")
				if err != nil {
					return nil, err
				}
				end, err := stringArg(args, "end_station")
				if err != nil {
					return nil, err
				}

				from, err := deps.Stations.ResolveStation(ctx, start)
				if err != nil {
					return nil, fmt.Errorf("could not find coordinates for %q, please try a more specific name", start)
				}
				to, err := deps.Stations.ResolveStation(ctx, end)
				if err != nil {
					return nil, fmt.Errorf("could not find coordinates for %q, please try a more specific name", end)
				}

				resp, err := deps.Journeys.Journeys(ctx,
					primx.Coord{Lon: from.Coord.Lon, Lat: from.Coord.Lat},
					primx.Coord{Lon: to.Coord.Lon, Lat: to.Coord.Lat},
				)
				if err != nil {
					return nil, fmt.Errorf("journey planning failed: %w", err)
				}
				return primx.FormatJourneys(resp), nil
			},
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return val, nil
}
