package cel

// HandlePickup reports a call pickup on the picked-up (target) channel,
// naming the channel that answered.
func (e *Engine) HandlePickup(msg *PickupMsg) {
	if msg.Channel == nil || msg.Target == nil {
		return
	}
	_ = e.report(msg.Target, Pickup, "", map[string]any{
		"pickup_channel": msg.Channel.Name,
	})
}

// HandleLocalOptimize reports the end of a local channel optimization on the
// first half-channel, naming the second.
func (e *Engine) HandleLocalOptimize(msg *LocalOptimizeMsg) {
	if msg.LocalOne == nil || msg.LocalTwo == nil {
		return
	}
	_ = e.report(msg.LocalOne, LocalOptimize, "", map[string]any{
		"local_two": msg.LocalTwo.Name,
	})
}
