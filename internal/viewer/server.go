// Package viewer serves the live chart to a browser: the chart image, a JSON
// state document, the subscribe form and symbol search.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dfunklove/tikka/internal/chart"
	"github.com/dfunklove/tikka/internal/connection"
	"github.com/dfunklove/tikka/internal/render"
	"github.com/dfunklove/tikka/internal/router"
	"github.com/dfunklove/tikka/internal/series"
	"github.com/dfunklove/tikka/internal/status"
	"github.com/dfunklove/tikka/internal/subscription"
	"github.com/dfunklove/tikka/internal/symbols"
)

// DefaultSearchLimit caps symbol search results.
const DefaultSearchLimit = 20

// Subscriptions changes and reports the active symbol.
type Subscriptions interface {
	ChangeSubscription(ctx context.Context, symbol string) error
	Snapshot() subscription.Snapshot
}

// Chart provides the rendered image.
type Chart interface {
	PNG() []byte
	Overlay() string
	Stats() chart.RendererStats
}

// Deps are the components the viewer reads from. Connection, Router, Render
// and Symbols may be nil.
type Deps struct {
	Subscriptions   Subscriptions
	Chart           Chart
	Store           *series.Store
	Status          *status.Board
	Connection      interface{ Stats() connection.ManagerStats }
	Router          interface{ Stats() router.RouterStats }
	Render          interface{ Stats() render.LoopStats }
	Symbols         *symbols.Directory
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// State is the document served at /api/state.
type State struct {
	Connection   connection.State `json:"connection"`
	Subscription string           `json:"subscription"`
	SubscribedAt *time.Time       `json:"subscribed_at,omitempty"`
	Busy         bool             `json:"busy"`
	Samples      int              `json:"samples"`
	Capacity     int              `json:"capacity"`
	LastPrice    *float64         `json:"last_price,omitempty"`
	Overlay      string           `json:"overlay"`
	Status       status.Message   `json:"status"`
	Stats        StateStats       `json:"stats"`
}

// StateStats groups component statistics.
type StateStats struct {
	Connection *connection.ManagerStats `json:"connection,omitempty"`
	Router     *router.RouterStats      `json:"router,omitempty"`
	Render     *render.LoopStats        `json:"render,omitempty"`
	Chart      chart.RendererStats      `json:"chart"`
	Store      series.StoreStats        `json:"store"`
}

type server struct {
	deps   Deps
	logger *slog.Logger
	page   *template.Template
}

// NewServer builds the viewer's HTTP handler.
func NewServer(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RefreshInterval <= 0 {
		deps.RefreshInterval = render.DefaultInterval
	}
	s := &server{
		deps:   deps,
		logger: deps.Logger,
		page:   template.Must(template.New("index").Parse(indexHTML)),
	}

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/chart.png", s.handleChart)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/subscription", s.handleSubscribe)
		r.Get("/symbols", s.handleSymbols)
	})

	return r
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		RefreshMillis int64
		Hint          string
	}{
		RefreshMillis: s.deps.RefreshInterval.Milliseconds(),
		Hint:          subscription.Hint,
	}
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Debug("index response write failed", "error", err)
	}
}

func (s *server) handleChart(w http.ResponseWriter, r *http.Request) {
	img := s.deps.Chart.PNG()
	if len(img) == 0 {
		http.Error(w, "chart not rendered", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		s.logger.Debug("chart response write failed", "error", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *server) state() State {
	sub := s.deps.Subscriptions.Snapshot()
	st := State{
		Connection:   connection.StateClosed,
		Subscription: sub.Symbol,
		Busy:         sub.Busy,
		Overlay:      s.deps.Chart.Overlay(),
		Stats: StateStats{
			Chart: s.deps.Chart.Stats(),
			Store: s.deps.Store.Stats(),
		},
	}
	if !sub.SubscribedAt.IsZero() {
		at := sub.SubscribedAt
		st.SubscribedAt = &at
	}
	st.Samples = st.Stats.Store.Count
	st.Capacity = st.Stats.Store.Capacity
	if last, ok := s.deps.Store.Last(); ok {
		p := last.Price
		st.LastPrice = &p
	}
	if s.deps.Status != nil {
		st.Status = s.deps.Status.Get()
	}
	if s.deps.Connection != nil {
		cs := s.deps.Connection.Stats()
		st.Connection = cs.State
		st.Stats.Connection = &cs
	}
	if s.deps.Router != nil {
		rs := s.deps.Router.Stats()
		st.Stats.Router = &rs
	}
	if s.deps.Render != nil {
		ls := s.deps.Render.Stats()
		st.Stats.Render = &ls
	}
	return st
}

type subscribeRequest struct {
	Symbol string `json:"symbol"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	symbol, err := readSymbol(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	symbol = strings.TrimSpace(symbol)

	if s.deps.Symbols != nil && symbol != "" {
		if _, ok := s.deps.Symbols.Lookup(symbol); !ok {
			s.reject(w, &subscription.ValidationError{Symbol: symbol, Reason: "unknown symbol", Hint: subscription.Hint})
			return
		}
	}

	err = s.deps.Subscriptions.ChangeSubscription(r.Context(), symbol)

	var verr *subscription.ValidationError
	switch {
	case err == nil:
		if s.deps.Status != nil {
			s.deps.Status.Clear()
		}
		writeJSON(w, http.StatusOK, s.deps.Subscriptions.Snapshot())
	case errors.As(err, &verr):
		s.reject(w, verr)
	case errors.Is(err, subscription.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.logger.Warn("subscription change failed", "symbol", symbol, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
}

func (s *server) reject(w http.ResponseWriter, verr *subscription.ValidationError) {
	if s.deps.Status != nil {
		s.deps.Status.SetHint(verr.Hint)
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Hint: verr.Hint})
}

func (s *server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	results := []symbols.Entry{}
	if s.deps.Symbols != nil {
		limit := DefaultSearchLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}
		if found := s.deps.Symbols.Search(r.URL.Query().Get("q"), limit); found != nil {
			results = found
		}
	}
	writeJSON(w, http.StatusOK, results)
}

// readSymbol accepts a JSON body or a form field.
func readSymbol(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req subscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid JSON body")
		}
		return req.Symbol, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", errors.New("invalid form body")
	}
	return r.PostFormValue("symbol"), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("json response write failed", "error", err)
	}
}
