package cel

import "encoding/json"

// HandleGeneric consumes events published on the CEL-internal topic. Only
// USER_DEFINED envelopes are reportable; any other carried event type is an
// error and is dropped.
func (e *Engine) HandleGeneric(msg *GenericMsg) {
	switch msg.EventType {
	case UserDefined:
		if msg.Channel == nil {
			return
		}
		var extra map[string]any
		if len(msg.EventDetails.Extra) > 0 {
			if err := json.Unmarshal(msg.EventDetails.Extra, &extra); err != nil {
				e.log.Error().Err(err).Str("event", msg.EventDetails.Event).Msg("bad extra blob on user event")
				return
			}
		}
		_ = e.report(msg.Channel, UserDefined, msg.EventDetails.Event, extra)
	default:
		e.log.Error().Str("event", msg.EventType.Name()).Msg("unhandled generic event blob")
	}
}
