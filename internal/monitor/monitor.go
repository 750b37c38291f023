// Package monitor detects fill level threshold crossings.
//
// Detection is edge-triggered: an alert fires only on the reading where fill
// moves from below the threshold to at-or-above it. Staying above the
// threshold, or falling back below it, never fires. A later upward crossing
// fires again, so each crossing yields exactly one alert.
package monitor

import (
	"fmt"
	"time"

	"github.com/rewired-gh/smartbin/internal/models"
)

// DefaultThreshold is the fill percentage that triggers an alert.
const DefaultThreshold = 80.0

// ThresholdDetector compares consecutive fill readings against a threshold.
type ThresholdDetector struct {
	threshold float64
	now       func() time.Time
}

// New creates a ThresholdDetector. A threshold outside (0, 100] falls back
// to DefaultThreshold.
func New(threshold float64) *ThresholdDetector {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &ThresholdDetector{threshold: threshold, now: time.Now}
}

// Threshold returns the configured crossing point.
func (d *ThresholdDetector) Threshold() float64 {
	return d.threshold
}

// Crossed reports whether prev→next is an upward crossing of the threshold.
func (d *ThresholdDetector) Crossed(prevFill, newFill float64) bool {
	return prevFill < d.threshold && newFill >= d.threshold
}

// Check returns an alert event when prev→next crosses the threshold upward.
func (d *ThresholdDetector) Check(prevFill, newFill float64) (models.Event, bool) {
	if !d.Crossed(prevFill, newFill) {
		return models.Event{}, false
	}
	return models.NewAlertEvent(newFill, d.now()), true
}

// String describes the detector for log lines.
func (d *ThresholdDetector) String() string {
	return fmt.Sprintf("fill>=%s%%", models.FormatPercent(d.threshold))
}
