package cel

import "encoding/json"

// Message type tags. Each message published to the aggregation topic carries
// one of these in its metadata; the dispatcher routes by tag.
const (
	TypeCacheUpdate      = "cache_update"
	TypeDial             = "channel_dial"
	TypeBridgeEnter      = "channel_entered_bridge"
	TypeBridgeLeave      = "channel_left_bridge"
	TypeParkedCall       = "parked_call"
	TypeCELGeneric       = "cel_generic"
	TypeBlindTransfer    = "blind_transfer"
	TypeAttendedTransfer = "attended_transfer"
	TypeCallPickup       = "call_pickup"
	TypeLocalOptimize    = "local_optimization_end"
)

// CacheUpdateMsg carries one channel's snapshot transition. Old is nil for a
// newly created channel, New is nil for a destroyed one.
type CacheUpdateMsg struct {
	Old *ChannelSnapshot `json:"old"`
	New *ChannelSnapshot `json:"new"`
}

// DialMsg is the multi-channel dial progress envelope. DialStatus carries the
// outcome (ANSWER, BUSY, NOANSWER, ...); Forward is set when the dial was
// redirected to another extension.
type DialMsg struct {
	Caller     *ChannelSnapshot `json:"caller"`
	Peer       *ChannelSnapshot `json:"peer"`
	DialString string           `json:"dialstring"`
	DialStatus string           `json:"dialstatus"`
	Forward    string           `json:"forward"`
}

// BridgeMsg carries a channel entering or leaving a bridge.
type BridgeMsg struct {
	Bridge  *BridgeSnapshot  `json:"bridge"`
	Channel *ChannelSnapshot `json:"channel"`
}

// TransferResult is the outcome of a transfer attempt.
type TransferResult int

const (
	TransferInvalid TransferResult = iota
	TransferNotPermitted
	TransferFail
	TransferSuccess
)

// BlindTransferMsg reports a completed or failed blind transfer.
type BlindTransferMsg struct {
	Result     TransferResult   `json:"result"`
	Transferer *ChannelSnapshot `json:"transferer"`
	Bridge     *BridgeSnapshot  `json:"bridge"`
	Exten      string           `json:"exten"`
	Context    string           `json:"context"`
}

// AttendedTransferDest describes where the surviving parties ended up after
// an attended transfer.
type AttendedTransferDest int

const (
	TransferDestFail AttendedTransferDest = iota
	TransferDestBridgeMerge
	TransferDestApp
	TransferDestLink
	TransferDestThreeway
)

// TransferParty pairs one side of an attended transfer with the bridge it
// was in, if any.
type TransferParty struct {
	Bridge  *BridgeSnapshot  `json:"bridge"`
	Channel *ChannelSnapshot `json:"channel"`
}

// AttendedTransferMsg reports the completion of an attended transfer.
// DestApp is set when DestType is TransferDestApp.
type AttendedTransferMsg struct {
	DestType         AttendedTransferDest `json:"dest_type"`
	ToTransferee     TransferParty        `json:"to_transferee"`
	ToTransferTarget TransferParty        `json:"to_transfer_target"`
	DestApp          string               `json:"dest_app"`
}

// ParkedCallEvent distinguishes the parking transitions carried on a
// ParkedCallMsg.
type ParkedCallEvent int

const (
	ParkedCall ParkedCallEvent = iota
	ParkedCallTimeout
	ParkedCallGiveUp
	ParkedCallUnparked
	ParkedCallFailed
	ParkedCallSwap
)

// ParkedCallMsg reports a parking transition for the parkee channel.
type ParkedCallMsg struct {
	EventType        ParkedCallEvent  `json:"event_type"`
	Parkee           *ChannelSnapshot `json:"parkee"`
	ParkerDialString string           `json:"parker_dial_string"`
	ParkingLot       string           `json:"parkinglot"`
}

// PickupMsg reports a call pickup: Channel answered a call that was ringing
// on Target.
type PickupMsg struct {
	Channel *ChannelSnapshot `json:"channel"`
	Target  *ChannelSnapshot `json:"target"`
}

// LocalOptimizeMsg reports the end of a local channel optimization collapsing
// the two half-channels.
type LocalOptimizeMsg struct {
	LocalOne *ChannelSnapshot `json:"1"`
	LocalTwo *ChannelSnapshot `json:"2"`
}

// GenericDetails is the inner payload of a user-published CEL event.
type GenericDetails struct {
	Event string          `json:"event"`
	Extra json.RawMessage `json:"extra"`
}

// GenericMsg is the envelope for events published on the CEL-internal topic.
// Only UserDefined is a handled EventType; anything else is dropped with an
// error log.
type GenericMsg struct {
	Channel      *ChannelSnapshot `json:"channel"`
	EventType    EventType        `json:"event_type"`
	EventDetails GenericDetails   `json:"event_details"`
}
