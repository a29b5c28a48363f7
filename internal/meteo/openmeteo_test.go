package meteo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haitimeteo/internal/config"
	"haitimeteo/internal/types"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(config.WeatherConfig{
		ForecastURL:    serverURL,
		ArchiveURL:     serverURL,
		Timezone:       "America/Port-au-Prince",
		LiveTimeout:    5 * time.Second,
		ArchiveTimeout: 5 * time.Second,
		MaxRetries:     2,
		UserAgent:      "HaitiMeteo-test/1.0",
	}, nil, WithSleepFunc(func(time.Duration) {}))
}

func TestFetchLivePremium_FullPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("alerts"))
		assert.Equal(t, "18.5944", r.URL.Query().Get("latitude"))
		w.Write([]byte(`{
			"current": {
				"time": "2026-08-30T14:00",
				"temperature_2m": 31.4,
				"relative_humidity_2m": 68,
				"precipitation": 0.2,
				"wind_speed_10m": 14.8,
				"weather_code": 3
			},
			"alerts": {"alert": [
				{"event": "Tropical Storm Watch", "severity": "Severe", "description": "Heavy rain expected"}
			]}
		}`))
	}))
	defer srv.Close()

	report, err := testClient(t, srv.URL).FetchLivePremium(context.Background(), 18.5944, -72.3074)
	require.NoError(t, err)

	require.NotNil(t, report.Current.Temperature)
	assert.InDelta(t, 31.4, *report.Current.Temperature, 1e-9)
	require.NotNil(t, report.Current.Humidity)
	assert.InDelta(t, 68, *report.Current.Humidity, 1e-9)
	require.NotNil(t, report.Current.WeatherCode)
	assert.Equal(t, 3, *report.Current.WeatherCode)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "Tropical Storm Watch", report.Alerts[0].Event)
}

func TestFetchLivePremium_MissingHumidityLeavesOtherFields(t *testing.T) {
	// Port-au-Prince reply without relative_humidity_2m: humidity stays nil,
	// every other metric is still extracted.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"current": {
				"time": "2026-08-30T14:00",
				"temperature_2m": 30.1,
				"precipitation": 1.5,
				"wind_speed_10m": 9.3,
				"weather_code": 61
			}
		}`))
	}))
	defer srv.Close()

	report, err := testClient(t, srv.URL).FetchLivePremium(context.Background(), 18.5944, -72.3074)
	require.NoError(t, err)

	assert.Nil(t, report.Current.Humidity)
	require.NotNil(t, report.Current.Temperature)
	assert.InDelta(t, 30.1, *report.Current.Temperature, 1e-9)
	require.NotNil(t, report.Current.Precipitation)
	assert.InDelta(t, 1.5, *report.Current.Precipitation, 1e-9)
	require.NotNil(t, report.Current.WindSpeed)
	assert.InDelta(t, 9.3, *report.Current.WindSpeed, 1e-9)
	assert.Empty(t, report.Alerts)
}

func TestFetchLivePremium_NoCurrentBlockIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude": 18.59, "longitude": -72.31}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchLivePremium(context.Background(), 18.5944, -72.3074)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamNoData, types.CodeOf(err))
}

func TestFetchArchiveYear_OrderedRecordsWithinYear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2020-01-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2020-12-31", r.URL.Query().Get("end_date"))
		w.Write([]byte(`{
			"daily": {
				"time": ["2020-01-01", "2020-01-02", "2020-01-03"],
				"temperature_2m_max": [30.5, 31.0, null],
				"temperature_2m_min": [21.1, 20.8, 22.0],
				"precipitation_sum": [0.0, 4.2, 1.1],
				"relative_humidity_2m_mean": [70, null, 75],
				"windspeed_10m_max": [11.0, 13.5, 10.2]
			}
		}`))
	}))
	defer srv.Close()

	records, err := testClient(t, srv.URL).FetchArchiveYear(context.Background(), 18.5944, -72.3074, 2020)
	require.NoError(t, err)
	require.Len(t, records, 3)

	yearStart := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	for i, rec := range records {
		assert.False(t, rec.Date.Before(yearStart))
		assert.False(t, rec.Date.After(yearEnd))
		if i > 0 {
			assert.True(t, records[i].Date.After(records[i-1].Date), "records must be strictly ordered by date")
		}
	}

	// Nulls in individual series stay nil without dropping the row.
	assert.Nil(t, records[2].TempMax)
	assert.Nil(t, records[1].Humidity)
	require.NotNil(t, records[1].TempMin)
	assert.InDelta(t, 20.8, *records[1].TempMin, 1e-9)
}

func TestFetchArchiveYear_NoDailyBlockIsValidEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude": 19.76, "longitude": -72.20}`))
	}))
	defer srv.Close()

	records, err := testClient(t, srv.URL).FetchArchiveYear(context.Background(), 19.7580, -72.2042, 1940)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestFetchArchiveYear_MismatchedSeriesIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"daily": {
				"time": ["2020-01-01", "2020-01-02"],
				"temperature_2m_max": [30.5],
				"temperature_2m_min": [21.1, 20.8],
				"precipitation_sum": [0.0, 4.2],
				"relative_humidity_2m_mean": [70, 71],
				"windspeed_10m_max": [11.0, 13.5]
			}
		}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchArchiveYear(context.Background(), 18.5944, -72.3074, 2020)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamAPI, types.CodeOf(err))
}

func TestFetchLiveBasic_HourlySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "temperature_2m,precipitation,windspeed_10m", r.URL.Query().Get("hourly"))
		assert.Equal(t, "America/Port-au-Prince", r.URL.Query().Get("timezone"))
		w.Write([]byte(`{
			"hourly": {
				"time": ["2026-08-30T00:00", "2026-08-30T01:00"],
				"temperature_2m": [27.1, 26.8],
				"precipitation": [0.0, 0.3],
				"windspeed_10m": [8.0, 7.5]
			}
		}`))
	}))
	defer srv.Close()

	series, err := testClient(t, srv.URL).FetchLiveBasic(context.Background(), 18.5944, -72.3074)
	require.NoError(t, err)
	require.Len(t, series.Time, 2)
	assert.InDelta(t, 26.8, series.Temperature[1], 1e-9)
	assert.InDelta(t, 0.3, series.Precipitation[1], 1e-9)
}

func TestGetJSON_Non200MapsToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"reason": "invalid coordinates"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchLivePremium(context.Background(), 18.5944, -72.3074)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamAPI, appErr.Code)
}
