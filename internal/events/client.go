// Package events fetches upcoming NBA, MLB and NFL events from the
// Ticketmaster discovery API.  Every call goes through a circuit breaker
// so a failing provider is not hammered.
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/metrics"
)

// sportsSegmentID is the provider's identifier for the Sports segment.
const sportsSegmentID = "KZFzniwnSyZfZ7v7nE"

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("events provider not configured")
	// ErrUnavailable is returned while the circuit is open.
	ErrUnavailable = errors.New("events provider temporarily unavailable")
)

// Leagues in the order they are fetched.
var Leagues = []string{"NBA", "MLB", "NFL"}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Start struct {
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

type Dates struct {
	Start Start `json:"start"`
}

type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type Named struct {
	Name string `json:"name"`
}

type Venue struct {
	Name    string `json:"name"`
	City    Named  `json:"city"`
	State   *Named `json:"state,omitempty"`
	Country *Named `json:"country,omitempty"`
}

// Event is the subset of a provider event the clients render.
type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Images      []Image      `json:"images"`
	Dates       Dates        `json:"dates"`
	PriceRanges []PriceRange `json:"priceRanges,omitempty"`
	Embedded    *struct {
		Venues []Venue `json:"venues,omitempty"`
	} `json:"_embedded,omitempty"`
}

// SportsEvents groups events per league.
type SportsEvents struct {
	NBA []Event `json:"nba"`
	MLB []Event `json:"mlb"`
	NFL []Event `json:"nfl"`
}

type discoveryResponse struct {
	Embedded *struct {
		Events []Event `json:"events"`
	} `json:"_embedded"`
}

// Client calls the discovery API.
type Client struct {
	cfg  config.EventsConfig
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]Event]
	now  func() time.Time
}

func NewClient(cfg config.EventsConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	cb := gobreaker.NewCircuitBreaker[[]Event](gobreaker.Settings{
		Name:        "ticketmaster",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb:   cb,
		now:  time.Now,
	}
}

// FetchSports returns upcoming events for every league.
func (c *Client) FetchSports(ctx context.Context) (*SportsEvents, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	out := &SportsEvents{}
	for _, league := range Leagues {
		evs, err := c.fetchLeague(ctx, league)
		if err != nil {
			return nil, err
		}
		switch league {
		case "NBA":
			out.NBA = evs
		case "MLB":
			out.MLB = evs
		case "NFL":
			out.NFL = evs
		}
	}
	return out, nil
}

func (c *Client) fetchLeague(ctx context.Context, league string) ([]Event, error) {
	evs, err := c.cb.Execute(func() ([]Event, error) {
		return c.get(ctx, league)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EventsProviderRequests.WithLabelValues(league, "rejected").Inc()
		return nil, ErrUnavailable
	case err != nil:
		metrics.EventsProviderRequests.WithLabelValues(league, "failure").Inc()
		return nil, fmt.Errorf("fetch %s events: %w", league, err)
	}
	metrics.EventsProviderRequests.WithLabelValues(league, "success").Inc()
	return evs, nil
}

func (c *Client) get(ctx context.Context, league string) ([]Event, error) {
	q := url.Values{}
	q.Set("apikey", c.cfg.APIKey)
	q.Set("countryCode", "US")
	q.Set("size", strconv.Itoa(c.cfg.PageSize))
	q.Set("sort", "date,asc")
	q.Set("classificationName", "Sports")
	q.Set("startDateTime", c.now().UTC().Format("2006-01-02")+"T00:00:00Z")
	q.Set("includeFamily", "no")
	q.Set("includeTBA", "no")
	q.Set("includeTBD", "no")
	q.Set("keyword", league)
	q.Set("segmentId", sportsSegmentID)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/events.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var dr discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if dr.Embedded == nil || dr.Embedded.Events == nil {
		return []Event{}, nil
	}
	return dr.Embedded.Events, nil
}
