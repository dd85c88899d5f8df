package cel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Source and aggregation topics. Stasis-style producers publish on the source
// topics; passthrough forwarders funnel everything into the aggregation topic
// the dispatcher consumes, so the engine sees one serialized stream.
const (
	TopicChannelCache = "asterisk.channels.cache"
	TopicBridges      = "asterisk.bridges"
	TopicParking      = "asterisk.parking"
	TopicCEL          = "cel.user"
	TopicAggregate    = "cel.aggregate"

	// MetaMessageType is the metadata key carrying the payload's type tag.
	MetaMessageType = "message-type"
)

// PubSub is the bus surface the engine needs: the forwarders republish the
// source topics on the same bus they subscribe to.
type PubSub interface {
	message.Publisher
	message.Subscriber
}

type celRouter struct {
	router *message.Router
}

// Attach builds the message router over the given bus: four passthrough
// forwarders into the aggregation topic plus the dispatcher. Run starts it.
func (e *Engine) Attach(ps PubSub, logger watermill.LoggerAdapter) error {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	forward := func(msg *message.Message) ([]*message.Message, error) {
		return []*message.Message{msg}, nil
	}

	router.AddHandler("forward_channel_cache", TopicChannelCache, ps, TopicAggregate, ps, forward)
	router.AddHandler("forward_bridges", TopicBridges, ps, TopicAggregate, ps, forward)
	router.AddHandler("forward_parking", TopicParking, ps, TopicAggregate, ps, forward)
	router.AddHandler("forward_cel", TopicCEL, ps, TopicAggregate, ps, forward)

	router.AddNoPublisherHandler("cel_dispatch", TopicAggregate, ps, e.dispatch)

	e.router = &celRouter{router: router}
	return nil
}

// Run blocks, consuming messages, until ctx is cancelled or Close is called.
func (e *Engine) Run(ctx context.Context) error {
	if e.router == nil {
		return fmt.Errorf("engine is not attached to a bus")
	}
	return e.router.router.Run(ctx)
}

// Running closes when all handlers are started and consuming. Before Attach
// it returns a channel that never closes.
func (e *Engine) Running() <-chan struct{} {
	if e.router == nil {
		return make(chan struct{})
	}
	return e.router.router.Running()
}

// Close unsubscribes all handlers and waits for in-flight messages to drain.
func (e *Engine) Close() error {
	if e.router == nil {
		return nil
	}
	return e.router.router.Close()
}

// dispatch routes one aggregation-topic message to its handler by type tag.
// Undecodable or unknown messages are logged and acked; redelivery would not
// make them parseable.
func (e *Engine) dispatch(msg *message.Message) error {
	typeTag := msg.Metadata.Get(MetaMessageType)

	decode := func(v any) bool {
		if err := json.Unmarshal(msg.Payload, v); err != nil {
			e.log.Error().Err(err).Str("message_type", typeTag).Str("uuid", msg.UUID).Msg("undecodable payload, dropping")
			return false
		}
		e.incHandler(typeTag)
		return true
	}

	switch typeTag {
	case TypeCacheUpdate:
		var m CacheUpdateMsg
		if decode(&m) {
			e.HandleCacheUpdate(m.Old, m.New)
		}
	case TypeDial:
		var m DialMsg
		if decode(&m) {
			e.HandleDial(&m)
		}
	case TypeBridgeEnter:
		var m BridgeMsg
		if decode(&m) {
			e.HandleBridgeEnter(&m)
		}
	case TypeBridgeLeave:
		var m BridgeMsg
		if decode(&m) {
			e.HandleBridgeLeave(&m)
		}
	case TypeParkedCall:
		var m ParkedCallMsg
		if decode(&m) {
			e.HandleParkedCall(&m)
		}
	case TypeBlindTransfer:
		var m BlindTransferMsg
		if decode(&m) {
			e.HandleBlindTransfer(&m)
		}
	case TypeAttendedTransfer:
		var m AttendedTransferMsg
		if decode(&m) {
			e.HandleAttendedTransfer(&m)
		}
	case TypeCallPickup:
		var m PickupMsg
		if decode(&m) {
			e.HandlePickup(&m)
		}
	case TypeLocalOptimize:
		var m LocalOptimizeMsg
		if decode(&m) {
			e.HandleLocalOptimize(&m)
		}
	case TypeCELGeneric:
		var m GenericMsg
		if decode(&m) {
			e.HandleGeneric(&m)
		}
	default:
		e.log.Warn().Str("message_type", typeTag).Str("uuid", msg.UUID).Msg("unknown message type, dropping")
	}
	return nil
}
