package chart

import "time"

// Overlay messages shown while the chart has too few samples to draw a line.
const (
	MsgEnterSymbol = "Enter a symbol..."
	MsgWaiting     = "Waiting for data..."
	MsgNoData      = "No data available"
)

// MinSamples is the number of samples needed before a line is drawn.
const MinSamples = 2

// OverlayMessage picks the text drawn over an empty chart. It returns "" once
// the chart holds at least MinSamples samples.
func OverlayMessage(sampleCount int, subscription string, subscribedAt, now time.Time, timeout time.Duration) string {
	if sampleCount >= MinSamples {
		return ""
	}
	if subscription == "" {
		return MsgEnterSymbol
	}
	if now.Sub(subscribedAt) < timeout {
		return MsgWaiting
	}
	return MsgNoData
}
