package meteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"haitimeteo/internal/config"
	"haitimeteo/internal/types"
)

// Client issues the three request shapes against the Open-Meteo API and
// normalizes JSON replies into domain records. It is stateless apart from the
// shared BaseClient resilience machinery.
type Client struct {
	base        *BaseClient
	forecastURL string
	archiveURL  string
	timezone    string

	liveTimeout    time.Duration
	archiveTimeout time.Duration

	logger *slog.Logger
}

// NewClient creates a weather client from configuration. If logger is nil,
// slog.Default() is used.
func NewClient(cfg config.WeatherConfig, logger *slog.Logger, opts ...BaseClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	// The http.Client carries no timeout of its own; each call gets a bounded
	// per-request context sized to its weight.
	base := NewBaseClient(
		&http.Client{},
		"open-meteo",
		RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		cfg.UserAgent,
		opts...,
	)

	return &Client{
		base:           base,
		forecastURL:    cfg.ForecastURL,
		archiveURL:     cfg.ArchiveURL,
		timezone:       cfg.Timezone,
		liveTimeout:    cfg.LiveTimeout,
		archiveTimeout: cfg.ArchiveTimeout,
		logger:         logger,
	}
}

// FetchLiveBasic retrieves the hourly live series (temperature,
// precipitation, wind) for the given coordinates.
func (c *Client) FetchLiveBasic(ctx context.Context, lat, lon float64) (*types.HourlySeries, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("hourly", "temperature_2m,precipitation,windspeed_10m")
	params.Set("timezone", c.timezone)

	var payload struct {
		Hourly *struct {
			Time          []string  `json:"time"`
			Temperature   []float64 `json:"temperature_2m"`
			Precipitation []float64 `json:"precipitation"`
			WindSpeed     []float64 `json:"windspeed_10m"`
		} `json:"hourly"`
	}

	if err := c.getJSON(ctx, c.forecastURL, params, c.liveTimeout, &payload); err != nil {
		return nil, err
	}

	if payload.Hourly == nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamNoData,
			"live response carries no hourly data",
			nil,
		)
	}

	return &types.HourlySeries{
		Time:          payload.Hourly.Time,
		Temperature:   payload.Hourly.Temperature,
		Precipitation: payload.Hourly.Precipitation,
		WindSpeed:     payload.Hourly.WindSpeed,
	}, nil
}

// FetchLivePremium retrieves current conditions plus official alerts for the
// given coordinates. Every numeric field of the current block is
// independently nullable: a field the remote omits stays nil without
// affecting the others.
func (c *Client) FetchLivePremium(ctx context.Context, lat, lon float64) (*types.LiveReport, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code")
	params.Set("timezone", "auto")
	params.Set("alerts", "true")

	var payload struct {
		Current *struct {
			Time          string   `json:"time"`
			Temperature   *float64 `json:"temperature_2m"`
			Humidity      *float64 `json:"relative_humidity_2m"`
			Precipitation *float64 `json:"precipitation"`
			WindSpeed     *float64 `json:"wind_speed_10m"`
			WeatherCode   *int     `json:"weather_code"`
		} `json:"current"`
		Alerts *struct {
			Alert []struct {
				Event       string `json:"event"`
				Onset       string `json:"onset"`
				Ends        string `json:"ends"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
			} `json:"alert"`
		} `json:"alerts"`
	}

	if err := c.getJSON(ctx, c.forecastURL, params, c.liveTimeout, &payload); err != nil {
		return nil, err
	}

	// Absence of the current block is "no data", not a parse error.
	if payload.Current == nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamNoData,
			"live response carries no current conditions",
			nil,
		)
	}

	report := &types.LiveReport{
		Current: types.CurrentConditions{
			Time:          payload.Current.Time,
			Temperature:   payload.Current.Temperature,
			Humidity:      payload.Current.Humidity,
			Precipitation: payload.Current.Precipitation,
			WindSpeed:     payload.Current.WindSpeed,
			WeatherCode:   payload.Current.WeatherCode,
		},
		Alerts: []types.Alert{},
	}

	if payload.Alerts != nil {
		for _, a := range payload.Alerts.Alert {
			report.Alerts = append(report.Alerts, types.Alert{
				Event:       a.Event,
				Onset:       a.Onset,
				Ends:        a.Ends,
				Severity:    a.Severity,
				Description: a.Description,
			})
		}
	}

	return report, nil
}

// FetchArchiveYear retrieves the daily records for Jan 1 through Dec 31 of
// the given year, ordered by date. A remote reply without a daily block means
// the source has no data for that city/year: FetchArchiveYear returns
// (nil, nil), a valid empty result rather than an error.
func (c *Client) FetchArchiveYear(ctx context.Context, lat, lon float64, year int) ([]types.DailyMetrics, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("start_date", fmt.Sprintf("%d-01-01", year))
	params.Set("end_date", fmt.Sprintf("%d-12-31", year))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,relative_humidity_2m_mean,windspeed_10m_max")
	params.Set("timezone", "auto")

	var payload struct {
		Daily *struct {
			Time          []string   `json:"time"`
			TempMax       []*float64 `json:"temperature_2m_max"`
			TempMin       []*float64 `json:"temperature_2m_min"`
			Precipitation []*float64 `json:"precipitation_sum"`
			Humidity      []*float64 `json:"relative_humidity_2m_mean"`
			WindSpeed     []*float64 `json:"windspeed_10m_max"`
		} `json:"daily"`
	}

	if err := c.getJSON(ctx, c.archiveURL, params, c.archiveTimeout, &payload); err != nil {
		return nil, err
	}

	if payload.Daily == nil || len(payload.Daily.Time) == 0 {
		return nil, nil
	}

	daily := payload.Daily
	n := len(daily.Time)
	if len(daily.TempMax) != n || len(daily.TempMin) != n ||
		len(daily.Precipitation) != n || len(daily.Humidity) != n ||
		len(daily.WindSpeed) != n {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamAPI,
			"archive response carries mismatched daily series lengths",
			nil,
		)
	}

	records := make([]types.DailyMetrics, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse(time.DateOnly, daily.Time[i])
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamAPI,
				fmt.Sprintf("archive response carries malformed date %q", daily.Time[i]),
				err,
			)
		}
		records = append(records, types.DailyMetrics{
			Date:          date.UTC(),
			TempMin:       daily.TempMin[i],
			TempMax:       daily.TempMax[i],
			Humidity:      daily.Humidity[i],
			Precipitation: daily.Precipitation[i],
			WindSpeed:     daily.WindSpeed[i],
		})
	}

	return records, nil
}

// getJSON performs a GET with a bounded per-call timeout and decodes the
// reply. Non-2xx statuses and malformed payloads map to typed failures;
// nothing is ever raised uncaught.
func (c *Client) getJSON(ctx context.Context, baseURL string, params url.Values, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamAPI,
			fmt.Sprintf("weather API returned %d", resp.StatusCode),
			nil,
			map[string]any{"body": string(body)},
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamAPI, "failed to decode weather API payload", err)
	}

	return nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
