package display

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/countdown"
	"github.com/rs/zerolog/log"
)

// OffsetStatus reports the viewer's current clock offset
type OffsetStatus interface {
	Status() clocksync.Status
}

// TeaSink forwards frames to a running bubbletea program
type TeaSink struct {
	program *tea.Program
	offset  OffsetStatus
}

func NewTeaSink(program *tea.Program, offset OffsetStatus) *TeaSink {
	return &TeaSink{program: program, offset: offset}
}

func (s *TeaSink) Emit(frame countdown.Frame) {
	st := s.offset.Status()
	s.program.Send(FrameMsg{
		Frame:    frame,
		OffsetMs: st.Offset.Millis,
		Synced:   st.Established,
	})
}

// LogSink writes a line whenever the displayed clock or status changes, for
// headless displays and debugging.
type LogSink struct {
	last countdown.Frame
}

func (s *LogSink) Emit(frame countdown.Frame) {
	if frame.Clock() == s.last.Clock() && frame.Status == s.last.Status && frame.Stale == s.last.Stale {
		return
	}
	s.last = frame

	ev := log.Info()
	if frame.Stale {
		ev = log.Warn().Err(frame.Err)
	}
	ev.Str("clock", frame.Clock()).
		Int64("remaining", frame.Remaining).
		Str("status", string(frame.Status)).
		Bool("stale", frame.Stale).
		Msg("timer")
}
