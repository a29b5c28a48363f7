package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"haitimeteo/internal/live"
	"haitimeteo/internal/types"
)

// CityReader exposes the registry to the read surface.
type CityReader interface {
	List(ctx context.Context) ([]types.City, error)
	GetByID(ctx context.Context, id int64) (*types.City, error)
}

// ArchiveReader exposes the (typically cached) historical read path.
type ArchiveReader interface {
	GetRange(ctx context.Context, cityID int64, start, end time.Time) ([]types.ArchiveRecord, error)
	DateBounds(ctx context.Context, cityID int64) (*types.DateBounds, error)
}

// LiveService exposes on-demand live fetching.
type LiveService interface {
	FetchCity(ctx context.Context, name string) (*live.FetchResult, error)
	FetchAll(ctx context.Context) ([]live.BoardRow, error)
	Hourly(ctx context.Context, name string) (*types.HourlySeries, error)
	History(ctx context.Context, name string) ([]types.LiveObservation, error)
}

// WeatherHandler serves the city, archive, and live endpoints.
type WeatherHandler struct {
	cities  CityReader
	archive ArchiveReader
	live    LiveService
	logger  *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler. If logger is nil,
// slog.Default() is used.
func NewWeatherHandler(cities CityReader, archive ArchiveReader, liveSvc LiveService, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{
		cities:  cities,
		archive: archive,
		live:    liveSvc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the weather routes on the provided chi.Router.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cities", func(r chi.Router) {
		r.Get("/", h.ListCities)
		r.Get("/{id}/archive", h.GetArchive)
		r.Get("/{id}/bounds", h.GetBounds)
	})
	r.Route("/live", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Post("/{name}", h.RefreshCity)
		r.Get("/{name}/hourly", h.GetHourly)
		r.Get("/{name}/history", h.GetHistory)
	})
}

// ListCities handles GET /v1/cities.
func (h *WeatherHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.cities.List(r.Context())
	if err != nil {
		h.logger.Error("city list failed", slog.String("error", err.Error()))
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: cities})
}

// GetArchive handles GET /v1/cities/{id}/archive?start=YYYY-MM-DD&end=YYYY-MM-DD.
// The city must exist: an unknown id is 404 even though an empty window for
// a known city is 200 with an empty list.
func (h *WeatherHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	cityID, err := h.cityID(r)
	if err != nil {
		Error(w, err)
		return
	}

	start, err := dateParam(r, "start")
	if err != nil {
		Error(w, err)
		return
	}
	end, err := dateParam(r, "end")
	if err != nil {
		Error(w, err)
		return
	}

	if _, err := h.cities.GetByID(r.Context(), cityID); err != nil {
		Error(w, err)
		return
	}

	records, err := h.archive.GetRange(r.Context(), cityID, start, end)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: records})
}

// GetBounds handles GET /v1/cities/{id}/bounds. A known city with no
// archive rows yields a null data field.
func (h *WeatherHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	cityID, err := h.cityID(r)
	if err != nil {
		Error(w, err)
		return
	}

	if _, err := h.cities.GetByID(r.Context(), cityID); err != nil {
		Error(w, err)
		return
	}

	bounds, err := h.archive.DateBounds(r.Context(), cityID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: bounds})
}

// GetBoard handles GET /v1/live.
func (h *WeatherHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.live.FetchAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: rows})
}

// RefreshCity handles POST /v1/live/{name}: it fetches current conditions
// and records an observation.
func (h *WeatherHandler) RefreshCity(w http.ResponseWriter, r *http.Request) {
	result, err := h.live.FetchCity(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: result, Warning: result.Warning})
}

// GetHourly handles GET /v1/live/{name}/hourly.
func (h *WeatherHandler) GetHourly(w http.ResponseWriter, r *http.Request) {
	series, err := h.live.Hourly(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: series})
}

// GetHistory handles GET /v1/live/{name}/history.
func (h *WeatherHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.live.History(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, APIResponse{Data: history})
}

func (h *WeatherHandler) cityID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"city id must be an integer",
			err,
			map[string]any{"id": raw},
		)
	}
	return id, nil
}

// dateParam parses a required YYYY-MM-DD query parameter.
func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"missing required query parameter",
			nil,
			map[string]any{"parameter": name},
		)
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidRange,
			"date must be formatted as YYYY-MM-DD",
			err,
			map[string]any{"parameter": name, "value": raw},
		)
	}
	return t.UTC(), nil
}
