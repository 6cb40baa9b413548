// Package weather looks up current conditions for a city and keeps a search history.
package weather

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
	"unicode"

	"github.com/elostora/shop/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	ErrCityRequired  = errors.New("weather: city is required")
	ErrNotConfigured = errors.New("weather: api key is not configured")
	ErrCityNotFound  = errors.New("weather: city not found")
	ErrUnavailable   = errors.New("weather: service is unreachable")
)

// Options configures a Client.
type Options struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Report is the current weather for a city.
type Report struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"condition"`
	Icon        string  `json:"icon"`
}

// Client queries an OpenWeatherMap-compatible endpoint.
type Client struct {
	db      *gorm.DB
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewClient builds a Client. db may be nil to skip history.
func NewClient(db *gorm.DB, opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		db:      db,
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(opts.APIKey),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type apiResponse struct {
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Message string `json:"message"`
}

// Lookup fetches the current weather for city and records it.
func (c *Client) Lookup(ctx context.Context, city string) (Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Report{}, ErrCityRequired
	}
	if c.apiKey == "" {
		return Report{}, ErrNotConfigured
	}
	if errWait := c.limiter.Wait(ctx); errWait != nil {
		return Report{}, fmt.Errorf("weather: wait for rate limit: %w", errWait)
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if errReq != nil {
		return Report{}, fmt.Errorf("weather: build request: %w", errReq)
	}
	resp, errDo := c.http.Do(req)
	if errDo != nil {
		log.WithError(errDo).Warn("weather: upstream request failed")
		return Report{}, ErrUnavailable
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Debug("weather: close response body")
		}
	}()

	var payload apiResponse
	if errDecode := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); errDecode != nil {
		return Report{}, fmt.Errorf("weather: decode response: %w", errDecode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Report{}, ErrCityNotFound
	}
	if resp.StatusCode != http.StatusOK || payload.Main == nil {
		msg := payload.Message
		if msg == "" {
			msg = resp.Status
		}
		return Report{}, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}

	report := Report{
		City:        capitalize(city),
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		report.Description = capitalize(payload.Weather[0].Description)
		report.Icon = payload.Weather[0].Icon
	}

	if c.db != nil {
		entry := models.SearchHistory{
			City:        report.City,
			Temperature: report.Temperature,
			FeelsLike:   report.FeelsLike,
			Humidity:    report.Humidity,
			WindSpeed:   report.WindSpeed,
			Description: report.Description,
			Icon:        report.Icon,
		}
		if errCreate := c.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
			return report, fmt.Errorf("weather: save history: %w", errCreate)
		}
	}
	return report, nil
}

// Recent returns the latest searches, newest first.
func Recent(ctx context.Context, conn *gorm.DB, limit int) ([]models.SearchHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var entries []models.SearchHistory
	if errFind := conn.WithContext(ctx).Order("searched_at DESC").Order("id DESC").
		Limit(limit).Find(&entries).Error; errFind != nil {
		return nil, fmt.Errorf("weather: load history: %w", errFind)
	}
	return entries, nil
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
