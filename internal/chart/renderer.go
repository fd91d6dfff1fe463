// Package chart draws the live price chart as a PNG: a go-chart time series
// once enough samples exist, otherwise a blank canvas with an overlay message.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"sync"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dfunklove/tikka/internal/clock"
	"github.com/dfunklove/tikka/internal/series"
)

// Subscription reports what the chart is showing.
type Subscription interface {
	Current() string
	SubscribedAt() time.Time
}

// Config sizes the chart and sets the empty-chart timeout.
type Config struct {
	Width        int
	Height       int
	EmptyTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       400,
		EmptyTimeout: 60 * time.Second,
	}
}

var lineColor = drawing.ColorFromHex("4bc0c0")

// Renderer keeps the most recent chart image for the store.
type Renderer struct {
	cfg    Config
	store  *series.Store
	subs   Subscription
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.RWMutex
	png        []byte
	overlay    string
	redraws    int64
	recreates  int64
	renderErrs int64
	renderedAt time.Time
}

// NewRenderer creates a renderer over store. subs may be nil.
func NewRenderer(cfg Config, store *series.Store, subs Subscription, clk clock.Clock, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	defaults := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = defaults.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = defaults.Height
	}
	if cfg.EmptyTimeout <= 0 {
		cfg.EmptyTimeout = defaults.EmptyTimeout
	}

	return &Renderer{
		cfg:    cfg,
		store:  store,
		subs:   subs,
		clock:  clk,
		logger: logger,
	}
}

// SetSubscription sets the source of the active symbol.
func (r *Renderer) SetSubscription(subs Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = subs
}

// Redraw renders the current store contents.
func (r *Renderer) Redraw() {
	samples := r.store.Snapshot()
	now := r.clock.Now()

	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()

	var symbol string
	var subscribedAt time.Time
	if subs != nil {
		symbol = subs.Current()
		subscribedAt = subs.SubscribedAt()
	}

	msg := OverlayMessage(len(samples), symbol, subscribedAt, now, r.cfg.EmptyTimeout)

	var (
		img []byte
		err error
	)
	if msg != "" {
		img, err = r.renderOverlay(msg)
	} else {
		img, err = r.renderSeries(symbol, samples)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.redraws++
	r.overlay = msg
	if err != nil {
		// Keep the previous image.
		r.renderErrs++
		r.logger.Warn("chart render failed", "error", err, "samples", len(samples))
		return
	}
	r.png = img
	r.renderedAt = now
}

// Recreate discards the cached image, as when the chart is rebuilt for a new
// subscription. The next PNG call renders afresh.
func (r *Renderer) Recreate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.png = nil
	r.overlay = ""
	r.recreates++
}

// PNG returns the latest chart image, rendering one if none is cached.
func (r *Renderer) PNG() []byte {
	r.mu.RLock()
	img := r.png
	r.mu.RUnlock()

	if img != nil {
		return img
	}

	r.Redraw()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.png
}

// Overlay returns the message drawn over the chart at the last redraw.
func (r *Renderer) Overlay() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlay
}

// Stats returns renderer statistics.
func (r *Renderer) Stats() RendererStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RendererStats{
		Redraws:      r.redraws,
		Recreates:    r.recreates,
		RenderErrors: r.renderErrs,
		RenderedAt:   r.renderedAt,
	}
}

// RendererStats contains renderer statistics.
type RendererStats struct {
	Redraws      int64     `json:"redraws"`
	Recreates    int64     `json:"recreates"`
	RenderErrors int64     `json:"render_errors"`
	RenderedAt   time.Time `json:"rendered_at"`
}

func (r *Renderer) renderSeries(symbol string, samples []series.Sample) ([]byte, error) {
	xs := make([]time.Time, len(samples))
	ys := make([]float64, len(samples))
	lo, hi := samples[0].Price, samples[0].Price
	for i, s := range samples {
		xs[i] = s.Time
		ys[i] = s.Price
		lo = min(lo, s.Price)
		hi = max(hi, s.Price)
	}

	ch := gochart.Chart{
		Title:      symbol,
		Width:      r.cfg.Width,
		Height:     r.cfg.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05"),
		},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    symbol,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
				},
			},
		},
	}
	// A flat line still needs a non-zero y range.
	if lo == hi {
		pad := max(math.Abs(lo)*0.01, 1)
		ch.YAxis.Range = &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render series: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderOverlay(msg string) ([]byte, error) {
	bounds := image.Rect(0, 0, r.cfg.Width, r.cfg.Height)
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 96, G: 96, B: 96, A: 255}),
		Face: face,
	}
	tw := dr.MeasureString(msg).Ceil()
	x := (r.cfg.Width - tw) / 2
	y := (r.cfg.Height + face.Metrics().Ascent.Ceil()) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(msg)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}
