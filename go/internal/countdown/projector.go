package countdown

import (
	"fmt"

	"github.com/mcdev12/stagetimer/go/internal/models"
)

// Remaining projects the whole seconds left on rec for a viewer whose clock
// reads localNow() and trails the reference clock by offsetMs. It performs no
// I/O and is safe to call every tick.
func Remaining(rec *models.TimerRecord, offsetMs int64, localNow func() int64) int64 {
	if rec == nil {
		return 0
	}
	if !rec.IsRunning() {
		return max(0, rec.DurationSec)
	}

	referenceNow := localNow() + offsetMs
	elapsed := models.ElapsedSeconds(rec.StartTime.UnixMilli(), referenceNow)
	return models.RemainingAfter(rec.DurationSec, elapsed)
}

// Frame is what a display renders on one tick
type Frame struct {
	Remaining int64
	Status    models.TimerStatus
	// Stale is set while the record feed is failing; Remaining is then
	// projected from the last record seen.
	Stale bool
	Err   error
}

// Ready reports whether a record has been seen at all
func (f Frame) Ready() bool {
	return f.Status != ""
}

// Clock formats Remaining as MM:SS, or H:MM:SS from one hour up
func (f Frame) Clock() string {
	if !f.Ready() {
		return "--:--"
	}
	secs := max(0, f.Remaining)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Sink receives frames from a Viewer's tick loop
type Sink interface {
	Emit(Frame)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Frame)

func (f SinkFunc) Emit(frame Frame) { f(frame) }
