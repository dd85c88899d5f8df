package cel

import (
	"fmt"
	"strings"
)

// EventType identifies a CEL event. The numeric codes are part of the
// external contract: backends and downstream consumers depend on them.
type EventType uint

const (
	// EventAll is the sentinel accepted in configuration only; it is never
	// carried on an event record.
	EventAll EventType = 0

	ChannelStart     EventType = 1
	ChannelEnd       EventType = 2
	Answer           EventType = 3
	Hangup           EventType = 4
	AppStart         EventType = 5
	AppEnd           EventType = 6
	ParkStart        EventType = 7
	ParkEnd          EventType = 8
	UserDefined      EventType = 9
	BridgeEnter      EventType = 10
	BridgeExit       EventType = 11
	BlindTransfer    EventType = 12
	AttendedTransfer EventType = 13
	Pickup           EventType = 14
	Forward          EventType = 15
	LinkedIDEnd      EventType = 16
	LocalOptimize    EventType = 17
)

// maxEventIDs bounds the event-type space; the tracking mask is 64 bits wide.
const maxEventIDs = 64

// eventTypeNames maps event-type codes to their configuration names. These
// names do not carry any prefix.
var eventTypeNames = map[EventType]string{
	EventAll:         "ALL",
	ChannelStart:     "CHAN_START",
	ChannelEnd:       "CHAN_END",
	Answer:           "ANSWER",
	Hangup:           "HANGUP",
	AppStart:         "APP_START",
	AppEnd:           "APP_END",
	ParkStart:        "PARK_START",
	ParkEnd:          "PARK_END",
	UserDefined:      "USER_DEFINED",
	BridgeEnter:      "BRIDGE_ENTER",
	BridgeExit:       "BRIDGE_EXIT",
	BlindTransfer:    "BLINDTRANSFER",
	AttendedTransfer: "ATTENDEDTRANSFER",
	Pickup:           "PICKUP",
	Forward:          "FORWARD",
	LinkedIDEnd:      "LINKEDID_END",
	LocalOptimize:    "LOCAL_OPTIMIZE",
}

// Name returns the configuration name for an event type, or "Unknown" for
// codes outside the closed set.
func (et EventType) Name() string {
	if name, ok := eventTypeNames[et]; ok {
		return name
	}
	return "Unknown"
}

// EventTypeByName resolves a configuration event name to its code. Names are
// matched case-sensitively. The ALL sentinel resolves to EventAll.
func EventTypeByName(name string) (EventType, bool) {
	for et, n := range eventTypeNames {
		if n == name {
			return et, true
		}
	}
	return 0, false
}

// EventSet is a 64-bit mask of tracked event types, indexed by event-type
// code. Bit 0 is never set directly; the ALL sentinel expands to all ones.
type EventSet uint64

// EventSetAll tracks every event type.
const EventSetAll = EventSet(^uint64(0))

// Track reports whether the given event type is in the set.
func (s EventSet) Track(et EventType) bool {
	if et >= maxEventIDs {
		return false
	}
	return s&(1<<et) != 0
}

// With returns the set with the given event type added.
func (s EventSet) With(et EventType) EventSet {
	return s | 1<<et
}

// Names returns the configuration names of all tracked events in code order,
// skipping codes with no name.
func (s EventSet) Names() []string {
	var names []string
	for i := EventType(1); i < maxEventIDs; i++ {
		if !s.Track(i) {
			continue
		}
		if name := i.Name(); name != "Unknown" {
			names = append(names, name)
		}
	}
	return names
}

// ParseEventSet parses a comma-separated list of event names into a set.
// Empty entries are skipped. The ALL sentinel sets every bit. A literally
// unknown name is a configuration error.
func ParseEventSet(list string) (EventSet, error) {
	var set EventSet
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		et, ok := EventTypeByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown event name %q", name)
		}
		if et == EventAll {
			set = EventSetAll
			continue
		}
		set = set.With(et)
	}
	return set, nil
}
