package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/weather"
	"github.com/gin-gonic/gin"
)

// WeatherHandler serves the weather widget.
type WeatherHandler struct {
	svc *api.Services
}

// NewWeatherHandler constructs a WeatherHandler.
func NewWeatherHandler(svc *api.Services) *WeatherHandler {
	return &WeatherHandler{svc: svc}
}

// Lookup returns the current weather for ?city= and records the search.
func (h *WeatherHandler) Lookup(c *gin.Context) {
	if h.svc.Weather == nil {
		api.RespondError(c, weather.ErrNotConfigured, "weather lookup failed")
		return
	}
	report, errLookup := h.svc.Weather.Lookup(c.Request.Context(), c.Query("city"))
	if errLookup != nil {
		api.RespondError(c, errLookup, "weather lookup failed")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Recent returns the latest searches.
func (h *WeatherHandler) Recent(c *gin.Context) {
	rows, errRecent := weather.Recent(c.Request.Context(), h.svc.DB, api.QueryInt(c, "limit", 10))
	if errRecent != nil {
		api.RespondError(c, errRecent, "load weather history failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"city":        row.City,
			"temp":        row.Temperature,
			"feels_like":  row.FeelsLike,
			"humidity":    row.Humidity,
			"wind_speed":  row.WindSpeed,
			"condition":   row.Description,
			"icon":        row.Icon,
			"searched_at": row.SearchedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"searches": out})
}
