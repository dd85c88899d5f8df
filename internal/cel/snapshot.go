package cel

// ChannelState is the call-progress state carried on a channel snapshot.
type ChannelState int

const (
	StateDown ChannelState = iota
	StateReserved
	StateOffHook
	StateDialing
	StateRing
	StateRinging
	StateUp
	StateBusy
	StateDialingOffHook
	StatePreRing
)

// TechProperty is a bitmask of channel-technology properties.
type TechProperty uint

const (
	// TechInternal marks channels that exist only as implementation detail
	// of the engine (announcers, recorders, local halves). Internal channels
	// never produce CEL events.
	TechInternal TechProperty = 1 << iota
)

// ChannelSnapshot is an immutable value copy of one channel's state at an
// instant. Snapshots arrive on the channel cache topic and inside the
// multi-channel envelopes; the engine never mutates them.
type ChannelSnapshot struct {
	UniqueID       string       `json:"uniqueid"`
	LinkedID       string       `json:"linkedid"`
	Name           string       `json:"name"`
	State          ChannelState `json:"state"`
	Dead           bool         `json:"dead"`
	Application    string       `json:"appl"`
	Data           string       `json:"data"`
	Context        string       `json:"context"`
	Exten          string       `json:"exten"`
	AMAFlags       int          `json:"amaflags"`
	AccountCode    string       `json:"accountcode"`
	PeerAccount    string       `json:"peeraccount"`
	UserField      string       `json:"userfield"`
	CallerIDName   string       `json:"caller_id_name"`
	CallerIDNumber string       `json:"caller_id_number"`
	CallerIDANI    string       `json:"caller_id_ani"`
	CallerIDRDNIS  string       `json:"caller_id_rdnis"`
	CallerIDDNID   string       `json:"caller_id_dnid"`
	HangupCause    int          `json:"hangupcause"`
	HangupSource   string       `json:"hangupsource"`
	TechProperties TechProperty `json:"tech_properties"`
}

// Internal reports whether the snapshot belongs to an internal channel.
// A nil snapshot is not internal.
func (s *ChannelSnapshot) Internal() bool {
	return s != nil && s.TechProperties&TechInternal != 0
}

// BridgeSnapshot is an immutable value copy of a bridge's identity.
type BridgeSnapshot struct {
	UniqueID   string `json:"uniqueid"`
	Technology string `json:"technology"`
}
