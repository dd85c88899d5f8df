package cel

// HandleBlindTransfer reports a completed blind transfer, attributed to the
// transferer channel. Failed attempts and envelopes without the destination
// extension and context are dropped.
func (e *Engine) HandleBlindTransfer(msg *BlindTransferMsg) {
	if msg.Result != TransferSuccess {
		return
	}
	if msg.Transferer == nil || msg.Bridge == nil {
		return
	}
	if msg.Exten == "" || msg.Context == "" {
		return
	}

	_ = e.report(msg.Transferer, BlindTransfer, "", map[string]any{
		"extension": msg.Exten,
		"context":   msg.Context,
		"bridge_id": msg.Bridge.UniqueID,
	})
}

// HandleAttendedTransfer reports a completed attended transfer. The parties
// are normalized so the primary (bridge1, channel1) pair is always non-nil:
// when the transferee side carried no bridge, the two sides are swapped.
// The event is attributed to channel1.
func (e *Engine) HandleAttendedTransfer(msg *AttendedTransferMsg) {
	primary, secondary := msg.ToTransferee, msg.ToTransferTarget
	if primary.Bridge == nil {
		primary, secondary = secondary, primary
	}

	if primary.Bridge == nil || primary.Channel == nil || secondary.Channel == nil {
		return
	}

	var extra map[string]any
	switch msg.DestType {
	case TransferDestFail:
		return
	case TransferDestBridgeMerge, TransferDestLink, TransferDestThreeway:
		bridge2 := ""
		if secondary.Bridge != nil {
			bridge2 = secondary.Bridge.UniqueID
		}
		extra = map[string]any{
			"bridge1_id":    primary.Bridge.UniqueID,
			"channel2_name": secondary.Channel.Name,
			"bridge2_id":    bridge2,
		}
	case TransferDestApp:
		extra = map[string]any{
			"bridge1_id":    primary.Bridge.UniqueID,
			"channel2_name": secondary.Channel.Name,
			"app":           msg.DestApp,
		}
	default:
		return
	}

	_ = e.report(primary.Channel, AttendedTransfer, "", extra)
}
