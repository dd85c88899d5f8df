package cel

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Publisher is the producer-side counterpart of the dispatcher: it wraps each
// typed envelope in a tagged message and publishes it on the source topic the
// engine's forwarders watch.
type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) publish(topic, typeTag string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typeTag, err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetaMessageType, typeTag)
	return p.pub.Publish(topic, msg)
}

// CacheUpdate publishes a channel snapshot transition. Pass a nil old
// snapshot for channel creation and a nil new snapshot for destruction.
func (p *Publisher) CacheUpdate(oldSnap, newSnap *ChannelSnapshot) error {
	return p.publish(TopicChannelCache, TypeCacheUpdate, &CacheUpdateMsg{Old: oldSnap, New: newSnap})
}

// Dial publishes dial progress for a caller.
func (p *Publisher) Dial(msg *DialMsg) error {
	return p.publish(TopicChannelCache, TypeDial, msg)
}

// BridgeEnter publishes a channel joining a bridge.
func (p *Publisher) BridgeEnter(bridge *BridgeSnapshot, channel *ChannelSnapshot) error {
	return p.publish(TopicBridges, TypeBridgeEnter, &BridgeMsg{Bridge: bridge, Channel: channel})
}

// BridgeLeave publishes a channel leaving a bridge.
func (p *Publisher) BridgeLeave(bridge *BridgeSnapshot, channel *ChannelSnapshot) error {
	return p.publish(TopicBridges, TypeBridgeLeave, &BridgeMsg{Bridge: bridge, Channel: channel})
}

// ParkedCall publishes a parking transition.
func (p *Publisher) ParkedCall(msg *ParkedCallMsg) error {
	return p.publish(TopicParking, TypeParkedCall, msg)
}

// BlindTransfer publishes a blind transfer outcome.
func (p *Publisher) BlindTransfer(msg *BlindTransferMsg) error {
	return p.publish(TopicBridges, TypeBlindTransfer, msg)
}

// AttendedTransfer publishes an attended transfer outcome.
func (p *Publisher) AttendedTransfer(msg *AttendedTransferMsg) error {
	return p.publish(TopicBridges, TypeAttendedTransfer, msg)
}

// Pickup publishes a call pickup: channel answered a call ringing on target.
func (p *Publisher) Pickup(channel, target *ChannelSnapshot) error {
	return p.publish(TopicChannelCache, TypeCallPickup, &PickupMsg{Channel: channel, Target: target})
}

// LocalOptimize publishes the end of a local channel optimization.
func (p *Publisher) LocalOptimize(one, two *ChannelSnapshot) error {
	return p.publish(TopicChannelCache, TypeLocalOptimize, &LocalOptimizeMsg{LocalOne: one, LocalTwo: two})
}

// UserEvent publishes an application-defined event against a channel. The
// extra payload, if any, must marshal to a JSON object.
func (p *Publisher) UserEvent(channel *ChannelSnapshot, eventName string, extra any) error {
	msg := &GenericMsg{
		Channel:      channel,
		EventType:    UserDefined,
		EventDetails: GenericDetails{Event: eventName},
	}
	if extra != nil {
		data, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encode user event extra: %w", err)
		}
		msg.EventDetails.Extra = data
	}
	return p.publish(TopicCEL, TypeCELGeneric, msg)
}
