package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/model"
	"github.com/fakhrymubarak/weather-gateway/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock service for testing
type mockWeatherService struct {
	err        error
	home       *model.HomePage
	display    *model.WeatherDisplay
	comparison *model.WeatherComparison

	gotQuery model.WeatherQuery
	gotPair  [3]string
}

func (m *mockWeatherService) Home() *model.HomePage { return m.home }

func (m *mockWeatherService) GetCurrent(_ context.Context, query model.WeatherQuery) (*model.WeatherDisplay, error) {
	m.gotQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.display, nil
}

func (m *mockWeatherService) Compare(_ context.Context, city1, city2, units string) (*model.WeatherComparison, error) {
	m.gotPair = [3]string{city1, city2, units}
	if m.err != nil {
		return nil, m.err
	}
	return m.comparison, nil
}

// Ensure mockWeatherService implements WeatherServiceInterface
var _ service.WeatherServiceInterface = (*mockWeatherService)(nil)

const genericErrorText = "We couldn&#39;t get the weather right now."

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func londonDisplay() *model.WeatherDisplay {
	return &model.WeatherDisplay{
		Date:        "Tuesday November 14, 2023",
		City:        "London",
		Description: "overcast clouds",
		Degrees:     15,
		Humidity:    70,
		WindSpeed:   4.1,
		Sunrise:     "22:13",
		Sunset:      "09:20",
		Units:       "C",
		Icon:        "https://openweathermap.org/img/wn/04n.png",
	}
}

func TestHandleHome(t *testing.T) {
	maxDate := time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)
	svc := &mockWeatherService{home: &model.HomePage{MinDate: maxDate.Add(-5 * 24 * time.Hour), MaxDate: maxDate}}
	h := NewWeatherHandler(svc)

	rr := serve(h.HandleHome, "/?ignored=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, `min="2023-11-09"`)
	assert.Contains(t, body, `max="2023-11-14"`)
	assert.Contains(t, body, `action="/results"`)
	assert.Contains(t, body, `action="/comparison_results"`)
}

func TestHandleResults(t *testing.T) {
	svc := &mockWeatherService{display: londonDisplay()}
	h := NewWeatherHandler(svc)

	rr := serve(h.HandleResults, "/results?city=London&units=metric")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.WeatherQuery{City: "London", Units: "metric"}, svc.gotQuery)

	body := rr.Body.String()
	assert.Contains(t, body, "London")
	assert.Contains(t, body, "Tuesday November 14, 2023")
	assert.Contains(t, body, "15&deg;C")
	assert.Contains(t, body, "70%")
	assert.Contains(t, body, `src="https://openweathermap.org/img/wn/04n.png"`)
	assert.Contains(t, body, "22:13")
	assert.Contains(t, body, "09:20")
}

func TestHandleResults_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing city", service.ErrMissingCity},
		{"upstream failure", errors.New("external API error: dial tcp 10.0.0.1:443: i/o timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWeatherHandler(&mockWeatherService{err: tt.err})
			rr := serve(h.HandleResults, "/results")

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			body := rr.Body.String()
			assert.Contains(t, body, genericErrorText)
			assert.NotContains(t, body, tt.err.Error())
			assert.NotContains(t, body, "goroutine")
		})
	}
}

func TestHandleComparisonResults(t *testing.T) {
	sunrise := time.Date(2023, 11, 14, 7, 5, 0, 0, time.UTC)
	svc := &mockWeatherService{comparison: &model.WeatherComparison{
		City1: &model.CityComparison{City: "London", Degrees: 15, Humidity: 70, WindSpeed: 4, Sunrise: sunrise, SunsetHour: 16, Units: "C", Icon: "https://openweathermap.org/img/wn/04n.png"},
		City2: &model.CityComparison{City: "Paris", Degrees: 12.5, Humidity: 80, WindSpeed: 6, Sunrise: sunrise, SunsetHour: 17, Units: "C", Icon: "https://openweathermap.org/img/wn/01d.png"},
	}}
	h := NewWeatherHandler(svc)

	rr := serve(h.HandleComparisonResults, "/comparison_results?"+url.Values{
		"city1": {"London"}, "city2": {"Paris"}, "units": {"metric"},
	}.Encode())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, [3]string{"London", "Paris", "metric"}, svc.gotPair)

	body := rr.Body.String()
	assert.Contains(t, body, "04n.png")
	assert.Contains(t, body, "01d.png")
	assert.Contains(t, body, "Nov 14 07:05")
	assert.Contains(t, body, "London is 2.5&deg;C warmer than Paris.")
	assert.Contains(t, body, "London has 10% less humidity than Paris.")
	assert.Contains(t, body, "The sun sets 1 hours earlier in London than in Paris.")
}

func TestHandleComparisonResults_Error(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{err: errors.New("location not found")})
	rr := serve(h.HandleComparisonResults, "/comparison_results?city1=London&city2=Atlantis")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), genericErrorText)
}

func TestHandleComparisonResults_RenderFailureIsNotPartial(t *testing.T) {
	// A nil side makes template execution fail midway.
	svc := &mockWeatherService{comparison: &model.WeatherComparison{
		City1: &model.CityComparison{City: "London"},
	}}
	h := NewWeatherHandler(svc)
	rr := serve(h.HandleComparisonResults, "/comparison_results?city1=London&city2=Paris")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, genericErrorText)
	assert.False(t, strings.Contains(body, `class="cards"`), "partial comparison page leaked")
}

// brokenPipeWriter accepts headers but fails every body write.
type brokenPipeWriter struct {
	header   http.Header
	statuses []int
}

func (b *brokenPipeWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenPipeWriter) WriteHeader(status int) { b.statuses = append(b.statuses, status) }

func (b *brokenPipeWriter) Write([]byte) (int, error) {
	return 0, errors.New("write: broken pipe")
}

func TestHandleResults_WriteFailureAfterHeader(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{display: londonDisplay()})
	w := &brokenPipeWriter{}
	h.HandleResults(w, httptest.NewRequest(http.MethodGet, "/results?city=London", nil))

	assert.Equal(t, []int{http.StatusOK}, w.statuses, "status must be written exactly once")
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestRenderError_WriteFailureAfterHeader(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{})
	w := &brokenPipeWriter{}
	h.RenderError(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound)

	assert.Equal(t, []int{http.StatusNotFound}, w.statuses)
}

func TestRenderError(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{})

	rr := serve(h.HandleNotFound, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Page not found")

	rr = serve(h.HandleMethodNotAllowed, "/results")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))

	rr = serve(h.HandleTooManyRequests, "/results")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "Too many requests")

	rr = httptest.NewRecorder()
	h.RenderError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), genericErrorText)
}

func TestHandleHealth(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{})
	rr := serve(h.HandleHealth, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func BenchmarkHandleResults(b *testing.B) {
	h := NewWeatherHandler(&mockWeatherService{display: londonDisplay()})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serve(h.HandleResults, "/results?city=London&units=metric")
	}
}
