package handler

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/fakhrymubarak/weather-gateway/internal/config"
	"github.com/fakhrymubarak/weather-gateway/internal/model"
	"github.com/fakhrymubarak/weather-gateway/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// appHandler is an HTTP handler that reports failure instead of writing it.
type appHandler func(w http.ResponseWriter, r *http.Request) error

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	tmpl           *template.Template
	log            *zap.SugaredLogger
}

func NewWeatherHandler(svc service.WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{
		WeatherService: svc,
		tmpl:           newTemplates(),
		log:            config.GetLogger(),
	}
}

var errorPages = map[int]model.ErrorPage{
	http.StatusNotFound: {
		Status:  http.StatusNotFound,
		Title:   "Page not found",
		Message: "The page you asked for does not exist.",
	},
	http.StatusMethodNotAllowed: {
		Status:  http.StatusMethodNotAllowed,
		Title:   "Method not allowed",
		Message: "This page only answers GET requests.",
	},
	http.StatusTooManyRequests: {
		Status:  http.StatusTooManyRequests,
		Title:   "Too many requests",
		Message: "You are looking up the weather too quickly. Please wait a minute and try again.",
	},
	http.StatusInternalServerError: {
		Status:  http.StatusInternalServerError,
		Title:   "Something went wrong",
		Message: "We couldn't get the weather right now. Check the city name and try again.",
	},
}

// render executes the named template into a buffer so a failed render never
// leaves a half-written page behind.
func (h *WeatherHandler) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderError writes the static error page for status. Unknown statuses use the 500 page text.
func (h *WeatherHandler) RenderError(w http.ResponseWriter, r *http.Request, status int) {
	page, ok := errorPages[status]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
		page.Status = status
	}
	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodGet)
	}
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	if err := h.render(ww, status, "error.html", page); err != nil {
		h.log.Errorw("Failed to render error page", "status", status, "error", err)
		if ww.Status() == 0 {
			http.Error(w, http.StatusText(status), status)
		}
	}
}

// wrap turns an appHandler into an http.HandlerFunc. Every error is logged and,
// unless the response has already started, answered with the generic 500 page.
func (h *WeatherHandler) wrap(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		err := fn(ww, r)
		if err == nil {
			return
		}
		h.log.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"status_written", ww.Status(),
			"error", err,
		)
		if ww.Status() != 0 {
			return
		}
		h.RenderError(w, r, http.StatusInternalServerError)
	}
}

func (h *WeatherHandler) home(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, http.StatusOK, "home.html", h.WeatherService.Home())
}

func (h *WeatherHandler) results(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	display, err := h.WeatherService.GetCurrent(r.Context(), model.WeatherQuery{
		City:  q.Get("city"),
		Units: q.Get("units"),
	})
	if err != nil {
		return err
	}
	return h.render(w, http.StatusOK, "results.html", display)
}

func (h *WeatherHandler) comparisonResults(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	comparison, err := h.WeatherService.Compare(r.Context(), q.Get("city1"), q.Get("city2"), q.Get("units"))
	if err != nil {
		return err
	}
	return h.render(w, http.StatusOK, "comparison_results.html", comparison)
}

// HandleHome serves GET /.
func (h *WeatherHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.wrap(h.home)(w, r)
}

// HandleResults serves GET /results?city=&units=.
func (h *WeatherHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	h.wrap(h.results)(w, r)
}

// HandleComparisonResults serves GET /comparison_results?city1=&city2=&units=.
func (h *WeatherHandler) HandleComparisonResults(w http.ResponseWriter, r *http.Request) {
	h.wrap(h.comparisonResults)(w, r)
}

func (h *WeatherHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.RenderError(w, r, http.StatusNotFound)
}

func (h *WeatherHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.RenderError(w, r, http.StatusMethodNotAllowed)
}

// HandleServerError writes the generic 500 page. Used by the panic recoverer.
func (h *WeatherHandler) HandleServerError(w http.ResponseWriter, r *http.Request) {
	h.RenderError(w, r, http.StatusInternalServerError)
}

func (h *WeatherHandler) HandleTooManyRequests(w http.ResponseWriter, r *http.Request) {
	h.RenderError(w, r, http.StatusTooManyRequests)
}

// HandleHealth answers liveness checks.
func (h *WeatherHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
