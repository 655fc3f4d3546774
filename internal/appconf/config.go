package appconf

import (
	"time"

	"oeffimonitor.org/internal/models"
)

const (
	DefaultListenPort     = 8080
	DefaultAPICacheMsec   = 15000
	DefaultRateLimit      = 10
	DefaultTriasURL       = "http://ogdtrias.verbundlinie.at:8183/stv/trias"
	DefaultRequestorRef   = "oeffimonitor"
	DefaultTriasTimeout   = 10000
	DefaultTriasRetries   = 1
	DefaultWalkCacheSize  = 1024
	DefaultWalkCacheTTL   = 24 * 60 * 60 * 1000
	DefaultDisruptionURL  = "https://verbundlinie.at/de/fahrplan/rund-um-den-fahrplan/verkehrsmeldungen"
	DefaultRegionLabel    = "Stadt- und Umlandverkehr Graz (Zone 101)"
	DefaultNoticeTitle    = "Achtung!"
	DefaultNoticeBody     = "Liebe Spektralbesucher*Innen, bitte schaltet den Monitor <strong>EIN</strong> bevor ihr geht. Er schaltet sich dann automatisch aus!"
)

const cycleHeadroomMsec = 5000

// Config is the root configuration of the monitor.
type Config struct {
	Env             Environment      `yaml:"env" toml:"env" validate:"oneof=development test production"`
	ListenPort      int              `yaml:"listen_port" toml:"listen_port" validate:"gt=0,lte=65535"`
	APICacheMsec    int              `yaml:"api_cache_msec" toml:"api_cache_msec" validate:"gte=0"`
	RateLimit       int              `yaml:"rate_limit" toml:"rate_limit"`
	RateLimitExempt []string         `yaml:"rate_limit_exempt" toml:"rate_limit_exempt" validate:"dive,ip"`
	OSRMURL         string           `yaml:"osrm_api_url" toml:"osrm_api_url" validate:"omitempty,url"`
	WalkCache       WalkCacheConfig  `yaml:"walk_cache" toml:"walk_cache"`
	Trias           TriasConfig      `yaml:"trias" toml:"trias"`
	Stops           []StopConfig     `yaml:"stops" toml:"stops" validate:"required,min=1,dive"`
	Filters         []FilterConfig   `yaml:"filters" toml:"filters" validate:"dive"`
	Disruptions     DisruptionConfig `yaml:"disruptions" toml:"disruptions"`
	Notice          NoticeConfig     `yaml:"notice" toml:"notice"`
	GTFSPath        string           `yaml:"gtfs_path" toml:"gtfs_path"`
}

// WalkCacheConfig bounds the walking duration cache.
type WalkCacheConfig struct {
	Size    int `yaml:"size" toml:"size" validate:"gt=0"`
	TTLMsec int `yaml:"ttl_msec" toml:"ttl_msec" validate:"gte=0"`
}

// TriasConfig describes the transit provider endpoint.
type TriasConfig struct {
	URL            string `yaml:"url" toml:"url" validate:"required,url"`
	RequestorRef   string `yaml:"requestor_ref" toml:"requestor_ref" validate:"required"`
	ResultsPerStop int    `yaml:"results_per_stop" toml:"results_per_stop" validate:"gte=0"`
	TimeoutMsec    int    `yaml:"timeout_msec" toml:"timeout_msec" validate:"gt=0"`
	Retries        int    `yaml:"retries" toml:"retries" validate:"gte=0,lte=10"`
}

// StopConfig is one monitored stop.
type StopConfig struct {
	ID   string `yaml:"id" toml:"id" validate:"required"`
	Name string `yaml:"name" toml:"name" validate:"required"`
}

// FilterConfig suppresses departures. With Stop set, both lists have to match.
type FilterConfig struct {
	Stop []string `yaml:"stop" toml:"stop"`
	Line []string `yaml:"line" toml:"line" validate:"required,min=1"`
}

// DisruptionConfig points the scraper at the operator's notice page.
// An empty URL disables scraping.
type DisruptionConfig struct {
	URL    string `yaml:"url" toml:"url" validate:"omitempty,url"`
	Region string `yaml:"region" toml:"region" validate:"required_with=URL"`
}

// NoticeConfig is the operational notice appended after all scraped warnings.
type NoticeConfig struct {
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
}

// Default returns the configuration used for every key a file omits.
func Default() Config {
	return Config{
		Env:             Development,
		ListenPort:      DefaultListenPort,
		APICacheMsec:    DefaultAPICacheMsec,
		RateLimit:       DefaultRateLimit,
		RateLimitExempt: []string{"127.0.0.1", "::1"},
		WalkCache: WalkCacheConfig{
			Size:    DefaultWalkCacheSize,
			TTLMsec: DefaultWalkCacheTTL,
		},
		Trias: TriasConfig{
			URL:          DefaultTriasURL,
			RequestorRef: DefaultRequestorRef,
			TimeoutMsec:  DefaultTriasTimeout,
			Retries:      DefaultTriasRetries,
		},
		Disruptions: DisruptionConfig{
			URL:    DefaultDisruptionURL,
			Region: DefaultRegionLabel,
		},
		Notice: NoticeConfig{
			Title:       DefaultNoticeTitle,
			Description: DefaultNoticeBody,
		},
	}
}

// APICacheTTL is the lifetime of a cached /api response.
func (c Config) APICacheTTL() time.Duration {
	return time.Duration(c.APICacheMsec) * time.Millisecond
}

// Timeout bounds a single request to the transit provider.
func (c TriasConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMsec) * time.Millisecond
}

// TTL is the lifetime of one walking duration.
func (c WalkCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMsec) * time.Millisecond
}

// CycleTimeout bounds one complete aggregation cycle, including retries.
func (c Config) CycleTimeout() time.Duration {
	attempts := c.Trias.Retries + 1
	return time.Duration(attempts*c.Trias.TimeoutMsec+cycleHeadroomMsec) * time.Millisecond
}

// MonitoredStops returns the configured stops in configuration order.
func (c Config) MonitoredStops() []models.Stop {
	stops := make([]models.Stop, 0, len(c.Stops))
	for _, s := range c.Stops {
		stops = append(stops, models.Stop{ID: s.ID, Name: s.Name})
	}
	return stops
}

// FilterRules converts the filter section into model rules.
func (c Config) FilterRules() []models.FilterRule {
	rules := make([]models.FilterRule, 0, len(c.Filters))
	for _, f := range c.Filters {
		rules = append(rules, models.FilterRule{Stop: f.Stop, Line: f.Line})
	}
	return rules
}

// NoticeWarning returns the operational notice as a warning.
func (c Config) NoticeWarning() models.Warning {
	return models.Warning{Title: c.Notice.Title, Description: c.Notice.Description}
}
