// Package prim calls the IDFM PRIM marketplace (Navitia) journeys API.
package prim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://prim.iledefrance-mobilites.fr/marketplace/v2/navitia"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Coord is a lon/lat pair in Navitia's decimal-string form.
type Coord struct {
	Lon string `json:"lon"`
	Lat string `json:"lat"`
}

// Client issues journey requests against the PRIM API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("prim base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid prim base url: %w", err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("prim api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// JourneysResponse is the subset of the Navitia journeys payload the
// formatter needs.
type JourneysResponse struct {
	Journeys    []Journey    `json:"journeys"`
	Disruptions []Disruption `json:"disruptions"`
}

type Journey struct {
	Duration          int       `json:"duration"` // seconds
	NbTransfers       int       `json:"nb_transfers"`
	DepartureDateTime string    `json:"departure_date_time"` // YYYYMMDDThhmmss
	ArrivalDateTime   string    `json:"arrival_date_time"`
	Sections          []Section `json:"sections"`
}

type Section struct {
	Type                string       `json:"type"`
	Duration            int          `json:"duration"`
	From                Place        `json:"from"`
	To                  Place        `json:"to"`
	DisplayInformations DisplayInfos `json:"display_informations"`
	Links               []Link       `json:"links"`
}

type Place struct {
	Name string `json:"name"`
}

type DisplayInfos struct {
	Code         string `json:"code"`
	Direction    string `json:"direction"`
	PhysicalMode string `json:"physical_mode"`
}

type Link struct {
	ID string `json:"id"`
}

type Disruption struct {
	Severity        Severity         `json:"severity"`
	Messages        []Message        `json:"messages"`
	ImpactedObjects []ImpactedObject `json:"impacted_objects"`
}

type Severity struct {
	Effect string `json:"effect"`
}

type Message struct {
	Text    string  `json:"text"`
	Channel Channel `json:"channel"`
}

type Channel struct {
	Name string `json:"name"`
}

type ImpactedObject struct {
	PTObject PTObject `json:"pt_object"`
}

type PTObject struct {
	ID string `json:"id"`
}

// Journeys requests routes between two coordinates. The query string is
// built by hand: the API expects a literal ';' between lon and lat, which
// url.Values would percent-encode.
func (c *Client) Journeys(ctx context.Context, from, to Coord) (*JourneysResponse, error) {
	fullURL := fmt.Sprintf("%s/journeys?from=%s;%s&to=%s;%s",
		c.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build journeys request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute journeys request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("journeys api status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed JourneysResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode journeys response: %w", err)
	}
	return &parsed, nil
}

type lineAlert struct {
	effect  string
	message string
}

// FormatJourneys renders the first two journeys as the agent-readable
// digest: duration and transfer counts, clock times, and one line per
// section with any per-line disruption alert attached.
func FormatJourneys(resp *JourneysResponse) string {
	if resp == nil || len(resp.Journeys) == 0 {
		return "No journeys found."
	}

	alerts := make(map[string]lineAlert)
	for _, d := range resp.Disruptions {
		msg := "Perturbation"
		for _, m := range d.Messages {
			if m.Channel.Name == "titre" {
				msg = m.Text
				break
			}
		}
		for _, obj := range d.ImpactedObjects {
			if obj.PTObject.ID == "" {
				continue
			}
			alerts[obj.PTObject.ID] = lineAlert{
				effect:  d.Severity.Effect,
				message: msg,
			}
		}
	}

	journeys := resp.Journeys
	if len(journeys) > 2 {
		journeys = journeys[:2]
	}

	digests := make([]string, 0, len(journeys))
	for i, j := range journeys {
		var lines []string
		lines = append(lines,
			fmt.Sprintf("Option %d: %d mins (%d transfers)", i+1, j.Duration/60, j.NbTransfers),
			fmt.Sprintf("   Departure: %s", clockTime(j.DepartureDateTime)),
			fmt.Sprintf("   Arrival:   %s", clockTime(j.ArrivalDateTime)),
			"   Itinerary:",
		)

		for _, s := range j.Sections {
			stepMins := s.Duration / 60
			switch s.Type {
			case "waiting":
				continue
			case "public_transport":
				mode := s.DisplayInformations.PhysicalMode
				if mode == "" {
					mode = "line"
				}
				alert := ""
				for _, link := range s.Links {
					if a, ok := alerts[link.ID]; ok {
						alert = fmt.Sprintf(" ALERT: %s", a.message)
						break
					}
				}
				lines = append(lines, fmt.Sprintf("    - Take %s %s towards %s (%d min)%s",
					mode, s.DisplayInformations.Code, s.DisplayInformations.Direction, stepMins, alert))
			case "street_network", "walking":
				lines = append(lines, fmt.Sprintf("    - Walk from %s to %s (%d min)",
					placeName(s.From, "Origin"), placeName(s.To, "Dest"), stepMins))
			case "transfer":
				lines = append(lines, fmt.Sprintf("    - Transfer at %s (%d min)",
					placeName(s.From, "Origin"), stepMins))
			}
		}

		digests = append(digests, strings.Join(lines, "\n"))
	}

	return strings.Join(digests, "\n\n")
}

// clockTime extracts HH:MM from a Navitia YYYYMMDDThhmmss timestamp.
func clockTime(dt string) string {
	if len(dt) < 13 {
		return "??:??"
	}
	return dt[9:11] + ":" + dt[11:13]
}

func placeName(p Place, fallback string) string {
	if p.Name == "" {
		return fallback
	}
	return p.Name
}
