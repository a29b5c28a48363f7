package live

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"haitimeteo/internal/types"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchLivePremium(ctx context.Context, lat, lon float64) (*types.LiveReport, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LiveReport), args.Error(1)
}

func (m *mockFetcher) FetchLiveBasic(ctx context.Context, lat, lon float64) (*types.HourlySeries, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.HourlySeries), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) List(ctx context.Context) ([]types.City, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *mockDirectory) GetByName(ctx context.Context, name string) (*types.City, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.City), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Insert(ctx context.Context, obs *types.LiveObservation) error {
	return m.Called(ctx, obs).Error(0)
}

func (m *mockStore) History(ctx context.Context, cityID int64) ([]types.LiveObservation, error) {
	args := m.Called(ctx, cityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.LiveObservation), args.Error(1)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

var portAuPrince = types.City{ID: 1, Name: "Port-au-Prince", Latitude: 18.5944, Longitude: -72.3074}

func fullReport() *types.LiveReport {
	return &types.LiveReport{
		Current: types.CurrentConditions{
			Time:          "2026-08-31T12:00",
			Temperature:   f64(31.2),
			Humidity:      f64(70),
			Precipitation: f64(0.4),
			WindSpeed:     f64(12.5),
			WeatherCode:   intp(2),
		},
		Alerts: []types.Alert{},
	}
}

func TestFetchCity_RecordsObservation(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	dir.On("GetByName", mock.Anything, "Port-au-Prince").Return(&portAuPrince, nil)
	fetcher.On("FetchLivePremium", mock.Anything, 18.5944, -72.3074).Return(fullReport(), nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(obs *types.LiveObservation) bool {
		return obs.CityID == 1 &&
			obs.CityName == "Port-au-Prince" &&
			obs.ObservedAt.Equal(now) &&
			obs.Temperature == 31.2
	})).Return(nil)

	c := NewCoordinator(fetcher, dir, store, fixedClock{now: now}, nil)

	result, err := c.FetchCity(context.Background(), "Port-au-Prince")
	require.NoError(t, err)
	require.NotNil(t, result.Observation)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 2, *result.Current.WeatherCode)
	store.AssertExpectations(t)
}

func TestFetchCity_NilMetricsStoredAsZero(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	report := fullReport()
	report.Current.Precipitation = nil
	report.Current.WindSpeed = nil

	dir.On("GetByName", mock.Anything, "Port-au-Prince").Return(&portAuPrince, nil)
	fetcher.On("FetchLivePremium", mock.Anything, 18.5944, -72.3074).Return(report, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(obs *types.LiveObservation) bool {
		return obs.Precipitation == 0 && obs.WindSpeed == 0
	})).Return(nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	_, err := c.FetchCity(context.Background(), "Port-au-Prince")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestFetchCity_UnknownNameSkipsUpstream(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	dir.On("GetByName", mock.Anything, "Atlantis").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil))

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	_, err := c.FetchCity(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeNotFoundCity, types.CodeOf(err))
	fetcher.AssertNotCalled(t, "FetchLivePremium")
}

func TestFetchCity_StoreFailureDegradesToWarning(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	dir.On("GetByName", mock.Anything, "Port-au-Prince").Return(&portAuPrince, nil)
	fetcher.On("FetchLivePremium", mock.Anything, 18.5944, -72.3074).Return(fullReport(), nil)
	store.On("Insert", mock.Anything, mock.Anything).
		Return(types.NewAppError(types.ErrCodeStorage, "insert failed", nil))

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	result, err := c.FetchCity(context.Background(), "Port-au-Prince")
	require.NoError(t, err)
	assert.Nil(t, result.Observation)
	assert.NotEmpty(t, result.Warning)
	require.NotNil(t, result.Current.Temperature)
	assert.InDelta(t, 31.2, *result.Current.Temperature, 1e-9)
}

func TestFetchAll_FailedCityKeepsItsRow(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	cities := []types.City{
		portAuPrince,
		{ID: 2, Name: "Cap-Haïtien", Latitude: 19.7580, Longitude: -72.2042},
		{ID: 3, Name: "Jacmel", Latitude: 18.2341, Longitude: -72.5345},
	}

	dir.On("List", mock.Anything).Return(cities, nil)
	fetcher.On("FetchLivePremium", mock.Anything, 18.5944, -72.3074).Return(fullReport(), nil)
	fetcher.On("FetchLivePremium", mock.Anything, 19.7580, -72.2042).
		Return(nil, types.NewAppError(types.ErrCodeUpstreamNetwork, "timeout", nil))
	fetcher.On("FetchLivePremium", mock.Anything, 18.2341, -72.5345).Return(fullReport(), nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	rows, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Rows keep registry order regardless of completion order.
	assert.Equal(t, "Port-au-Prince", rows[0].CityName)
	assert.Equal(t, "Cap-Haïtien", rows[1].CityName)
	assert.Equal(t, "Jacmel", rows[2].CityName)

	failed := rows[1]
	assert.Nil(t, failed.Temperature)
	assert.Nil(t, failed.Humidity)
	assert.Zero(t, failed.Precipitation)
	assert.Zero(t, failed.WindSpeed)
	assert.Equal(t, "⚠️", failed.Icon)
	assert.NotEmpty(t, failed.Err)

	ok := rows[0]
	require.NotNil(t, ok.Temperature)
	assert.InDelta(t, 31.2, *ok.Temperature, 1e-9)
	assert.Equal(t, "⛅", ok.Icon)
	assert.Empty(t, ok.Err)

	// Board fetches never record observations.
	store.AssertNotCalled(t, "Insert")
}

func TestFetchAll_EmptyRegistryIsConfigError(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	dir.On("List", mock.Anything).Return([]types.City{}, nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	_, err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeConfigEmptyRegistry, types.CodeOf(err))
	fetcher.AssertNotCalled(t, "FetchLivePremium")
}

func TestFetchAll_BoundsInFlightFetches(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	cities := make([]types.City, 30)
	for i := range cities {
		cities[i] = types.City{
			ID:        int64(i + 1),
			Name:      "City",
			Latitude:  float64(i),
			Longitude: float64(-i),
		}
	}
	dir.On("List", mock.Anything).Return(cities, nil)

	var inFlight, peak atomic.Int32
	fetcher.On("FetchLivePremium", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}).
		Return(fullReport(), nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	rows, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 30)
	assert.LessOrEqual(t, peak.Load(), int32(20))
}

func TestBoardWorkers(t *testing.T) {
	assert.Equal(t, 2, boardWorkers(1))
	assert.Equal(t, 2, boardWorkers(2))
	assert.Equal(t, 8, boardWorkers(8))
	assert.Equal(t, 20, boardWorkers(25))
}

func TestHourly_ResolvesNameFirst(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	series := &types.HourlySeries{
		Time:          []string{"2026-08-31T00:00"},
		Temperature:   []float64{27.1},
		Precipitation: []float64{0.0},
		WindSpeed:     []float64{8.0},
	}
	dir.On("GetByName", mock.Anything, "Port-au-Prince").Return(&portAuPrince, nil)
	fetcher.On("FetchLiveBasic", mock.Anything, 18.5944, -72.3074).Return(series, nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	got, err := c.Hourly(context.Background(), "Port-au-Prince")
	require.NoError(t, err)
	require.Len(t, got.Time, 1)
	assert.InDelta(t, 27.1, got.Temperature[0], 1e-9)
	store.AssertNotCalled(t, "Insert")
}

func TestHistory_ResolvesNameFirst(t *testing.T) {
	fetcher := &mockFetcher{}
	dir := &mockDirectory{}
	store := &mockStore{}

	obs := []types.LiveObservation{
		{ID: 1, CityID: 1, CityName: "Port-au-Prince", Temperature: 30.0},
		{ID: 2, CityID: 1, CityName: "Port-au-Prince", Temperature: 31.5},
	}
	dir.On("GetByName", mock.Anything, "port-au-prince").Return(&portAuPrince, nil)
	store.On("History", mock.Anything, int64(1)).Return(obs, nil)

	c := NewCoordinator(fetcher, dir, store, nil, nil)

	got, err := c.History(context.Background(), "port-au-prince")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
}
