package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Report is the ambient weather context fed into recommendations.
type Report struct {
	TemperatureC float64 `json:"temperature_c"`
	Humidity     int     `json:"humidity"`
	Description  string  `json:"description"`
}

// Provider fetches current weather for a city.
type Provider interface {
	Current(ctx context.Context, city string) (Report, error)
}

// Config encapsulates the external API configuration.
type Config struct {
	APIKey   string
	CacheTTL time.Duration
}

// NewProvider wires a provider implementation based on the config. Without
// an API key a static provider keeps recommendations usable in development.
func NewProvider(cfg Config) Provider {
	var base Provider
	if cfg.APIKey == "" {
		base = staticProvider{}
	} else {
		base = &openWeatherProvider{
			apiKey: cfg.APIKey,
			client: &http.Client{Timeout: 6 * time.Second},
		}
	}

	return wrapWithCache(base, cfg.CacheTTL)
}

func wrapWithCache(base Provider, ttl time.Duration) Provider {
	if ttl <= 0 {
		return base
	}

	return &cachedProvider{
		base:    base,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

type cachedProvider struct {
	base    Provider
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	report  Report
	expires time.Time
}

func (c *cachedProvider) Current(ctx context.Context, city string) (Report, error) {
	key := normalizeCity(city)
	now := time.Now()

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && entry.expires.After(now) {
		c.mu.RUnlock()
		return entry.report, nil
	}
	c.mu.RUnlock()

	report, err := c.base.Current(ctx, city)
	if err != nil {
		return Report{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{
		report:  report,
		expires: now.Add(c.ttl),
	}
	c.mu.Unlock()

	return report, nil
}

func normalizeCity(city string) string {
	trimmed := strings.TrimSpace(strings.ToLower(city))
	parts := strings.Fields(trimmed)
	return strings.Join(parts, " ")
}

type openWeatherProvider struct {
	apiKey string
	client *http.Client
}

func (p *openWeatherProvider) Current(ctx context.Context, city string) (Report, error) {
	if strings.TrimSpace(city) == "" {
		return Report{}, fmt.Errorf("weather: empty city")
	}

	params := url.Values{
		"q":     []string{city},
		"units": []string{"metric"},
		"appid": []string{p.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.openweathermap.org/data/2.5/weather", nil)
	if err != nil {
		return Report{}, fmt.Errorf("weather request: %w", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather status %s", resp.Status)
	}

	var payload struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("weather decode response: %w", err)
	}

	report := Report{
		TemperatureC: payload.Main.Temp,
		Humidity:     payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	return report, nil
}

// DefaultReport is the mild-day assumption used when no live lookup is
// available, either because no API key is configured or a lookup failed.
func DefaultReport() Report {
	return Report{
		TemperatureC: 22,
		Humidity:     55,
		Description:  "partly cloudy",
	}
}

type staticProvider struct{}

func (staticProvider) Current(_ context.Context, _ string) (Report, error) {
	return DefaultReport(), nil
}
