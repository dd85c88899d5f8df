package cel

// HandleBridgeEnter reports a channel joining a bridge.
func (e *Engine) HandleBridgeEnter(msg *BridgeMsg) {
	if msg.Channel == nil || msg.Bridge == nil || msg.Channel.Internal() {
		return
	}
	_ = e.report(msg.Channel, BridgeEnter, "", map[string]any{
		"bridge_id": msg.Bridge.UniqueID,
	})
}

// HandleBridgeLeave reports a channel leaving a bridge.
func (e *Engine) HandleBridgeLeave(msg *BridgeMsg) {
	if msg.Channel == nil || msg.Bridge == nil || msg.Channel.Internal() {
		return
	}
	_ = e.report(msg.Channel, BridgeExit, "", map[string]any{
		"bridge_id": msg.Bridge.UniqueID,
	})
}
