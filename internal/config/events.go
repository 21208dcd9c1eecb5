package config

import "time"

// EventsConfig configures the sports events provider client.
type EventsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// PageSize is the number of events requested per league.
	PageSize int
}

// LoadEventsConfig reads TICKETMASTER_* settings.  An empty API key
// leaves the events endpoint reporting itself unconfigured.
func LoadEventsConfig() EventsConfig {
	return EventsConfig{
		APIKey:   envStr("TICKETMASTER_API_KEY", ""),
		BaseURL:  envStr("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com/discovery/v2"),
		Timeout:  envDur("EVENTS_TIMEOUT", 10*time.Second),
		PageSize: envInt("EVENTS_PAGE_SIZE", 50),
	}
}
