package cel

// HandleParkedCall reports parking transitions on the parkee channel: a
// PARK_START when the call is parked, a PARK_END with the reason for every
// other transition.
func (e *Engine) HandleParkedCall(msg *ParkedCallMsg) {
	if msg.Parkee == nil {
		return
	}

	var reason string
	switch msg.EventType {
	case ParkedCall:
		_ = e.report(msg.Parkee, ParkStart, "", map[string]any{
			"parker_dial_string": msg.ParkerDialString,
			"parking_lot":        msg.ParkingLot,
		})
		return
	case ParkedCallTimeout:
		reason = "ParkedCallTimeOut"
	case ParkedCallGiveUp:
		reason = "ParkedCallGiveUp"
	case ParkedCallUnparked:
		reason = "ParkedCallUnparked"
	case ParkedCallFailed:
		reason = "ParkedCallFailed"
	case ParkedCallSwap:
		reason = "ParkedCallSwap"
	default:
		e.log.Error().Int("event_type", int(msg.EventType)).Msg("unhandled parked call event")
		return
	}

	_ = e.report(msg.Parkee, ParkEnd, "", map[string]any{
		"reason": reason,
	})
}
