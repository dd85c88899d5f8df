package cel

import "github.com/snarg/cel-engine/internal/metrics"

// snapshotMonitors are applied to every channel snapshot transition, in
// order. The order is load-bearing: application changes must reach backends
// before the hangup event so a final APP_END precedes HANGUP, and linkedid
// bookkeeping runs last so CHANNEL_END is emitted while the old linkedid
// still holds a reference.
var snapshotMonitors = []func(*Engine, *ChannelSnapshot, *ChannelSnapshot){
	(*Engine).monitorAppChange,
	(*Engine).monitorStateChange,
	(*Engine).monitorLinkedIDChange,
}

// HandleCacheUpdate consumes one channel's (old, new) snapshot pair from the
// channel cache. Updates touching internal channels are ignored entirely.
func (e *Engine) HandleCacheUpdate(oldSnap, newSnap *ChannelSnapshot) {
	if oldSnap.Internal() || newSnap.Internal() {
		return
	}
	for _, monitor := range snapshotMonitors {
		monitor(e, oldSnap, newSnap)
	}
}

func (e *Engine) monitorAppChange(oldSnap, newSnap *ChannelSnapshot) {
	if oldSnap != nil && newSnap != nil && oldSnap.Application == newSnap.Application {
		return
	}

	// old snapshot has an application, end it
	if oldSnap != nil && oldSnap.Application != "" {
		_ = e.report(oldSnap, AppEnd, "", nil)
	}

	// new snapshot has an application, start it
	if newSnap != nil && newSnap.Application != "" {
		_ = e.report(newSnap, AppStart, "", nil)
	}
}

func (e *Engine) monitorStateChange(oldSnap, newSnap *ChannelSnapshot) {
	if newSnap == nil {
		if oldSnap == nil {
			return
		}
		_ = e.report(oldSnap, ChannelEnd, "", nil)
		e.retireLinkedID(oldSnap)
		return
	}

	if oldSnap == nil {
		_ = e.report(newSnap, ChannelStart, "", nil)
		return
	}

	if !oldSnap.Dead && newSnap.Dead {
		dialstatus := ""
		if msg := e.dialStatus.Consume(newSnap.UniqueID); msg != nil {
			dialstatus = msg.DialStatus
		}
		metrics.DialStatusPending.Set(float64(e.dialStatus.Len()))

		_ = e.report(newSnap, Hangup, "", map[string]any{
			"hangupcause":  newSnap.HangupCause,
			"hangupsource": newSnap.HangupSource,
			"dialstatus":   dialstatus,
		})
		return
	}

	if oldSnap.State != newSnap.State && newSnap.State == StateUp {
		_ = e.report(newSnap, Answer, "", nil)
	}
}

func (e *Engine) monitorLinkedIDChange(oldSnap, newSnap *ChannelSnapshot) {
	if oldSnap == nil || newSnap == nil {
		return
	}

	if oldSnap.LinkedID == newSnap.LinkedID {
		return
	}

	if err := e.linkedIDs.Acquire(newSnap.LinkedID); err != nil {
		e.log.Error().Err(err).Str("channel", newSnap.Name).Msg("linkedid acquire failed on linkedid change")
		return
	}
	metrics.LinkedIDsActive.Set(float64(e.linkedIDs.Len()))

	e.retireLinkedID(oldSnap)
}
