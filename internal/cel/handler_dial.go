package cel

import "github.com/snarg/cel-engine/internal/metrics"

// HandleDial consumes dial progress for a caller. A forward is reported
// immediately; a dialstatus is stored and carried over to the caller's
// eventual HANGUP event.
func (e *Engine) HandleDial(msg *DialMsg) {
	if msg.Caller == nil || msg.Caller.UniqueID == "" {
		return
	}
	if msg.Caller.Internal() {
		return
	}

	if msg.Forward != "" {
		_ = e.report(msg.Caller, Forward, "", map[string]any{
			"forward": msg.Forward,
		})
	}

	if msg.DialStatus == "" {
		return
	}

	e.dialStatus.Save(msg)
	metrics.DialStatusPending.Set(float64(e.dialStatus.Len()))
}
