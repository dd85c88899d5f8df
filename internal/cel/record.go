package cel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Record is the immutable CEL event record published to backends. The JSON
// field names are the wire shape backends and downstream consumers depend on.
type Record struct {
	EventType       EventType `json:"event_type"`
	EventName       string    `json:"event_name"`
	EventTimeSec    int64     `json:"event_time_sec"`
	EventTimeUsec   int64     `json:"event_time_usec"`
	UserDefinedName string    `json:"user_defined_name"`

	CallerIDName    string `json:"caller_id_name"`
	CallerIDNumber  string `json:"caller_id_num"`
	CallerIDANI     string `json:"caller_id_ani"`
	CallerIDRDNIS   string `json:"caller_id_rdnis"`
	CallerIDDNID    string `json:"caller_id_dnid"`
	Extension       string `json:"extension"`
	Context         string `json:"context"`
	ChannelName     string `json:"channel_name"`
	ApplicationName string `json:"application_name"`
	ApplicationData string `json:"application_data"`
	AccountCode     string `json:"account_code"`
	PeerAccount     string `json:"peer_account"`
	UniqueID        string `json:"unique_id"`
	LinkedID        string `json:"linked_id"`
	AMAFlags        int    `json:"amaflags"`
	UserField       string `json:"user_field"`

	// Peer is empty when the record leaves the engine; some backends fill it
	// with the bridged peer name before writing.
	Peer string `json:"peer"`

	// Extra is a JSON-encoded object of per-event-type context, or the empty
	// string when the event carries none.
	Extra string `json:"extra"`
}

// Time returns the event time at microsecond precision.
func (r *Record) Time() time.Time {
	return time.Unix(r.EventTimeSec, r.EventTimeUsec*1000).UTC()
}

// FormatTime renders the event time with the given strftime pattern, falling
// back to "<sec>.<usec>" when the pattern is empty or invalid.
func (r *Record) FormatTime(pattern string) string {
	return formatEventTime(pattern, r.EventTimeSec, r.EventTimeUsec)
}

// LegacyPeerAccount returns the account code, mirroring the historical record
// decoder which read peer_account from the account-code element of the wire
// record. Consumers that depended on that behavior read this; PeerAccount
// holds the snapshot's actual peer account.
func (r *Record) LegacyPeerAccount() string {
	return r.AccountCode
}

// BuildRecord assembles a record from a channel snapshot. The extra object is
// JSON-encoded into the record; a nil extra yields the empty string.
func BuildRecord(snap *ChannelSnapshot, et EventType, userEventName string, extra map[string]any) (*Record, error) {
	var extraTxt string
	if extra != nil {
		encoded, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("encode extra for %s: %w", et.Name(), err)
		}
		extraTxt = string(encoded)
	}

	now := time.Now().UTC()

	return &Record{
		EventType:       et,
		EventName:       et.Name(),
		EventTimeSec:    now.Unix(),
		EventTimeUsec:   int64(now.Nanosecond() / 1000),
		UserDefinedName: userEventName,
		CallerIDName:    snap.CallerIDName,
		CallerIDNumber:  snap.CallerIDNumber,
		CallerIDANI:     snap.CallerIDANI,
		CallerIDRDNIS:   snap.CallerIDRDNIS,
		CallerIDDNID:    snap.CallerIDDNID,
		Extension:       snap.Exten,
		Context:         snap.Context,
		ChannelName:     snap.Name,
		ApplicationName: snap.Application,
		ApplicationData: snap.Data,
		AccountCode:     snap.AccountCode,
		PeerAccount:     snap.PeerAccount,
		UniqueID:        snap.UniqueID,
		LinkedID:        snap.LinkedID,
		AMAFlags:        snap.AMAFlags,
		UserField:       snap.UserField,
		Extra:           extraTxt,
	}, nil
}

// Encode serializes the record to its wire form.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// FillRecord decodes a wire-form record. The user-defined name is only
// meaningful for USER_DEFINED events and is cleared for every other type; the
// event name is recomputed from the type code so unknown codes decode as
// "Unknown".
func FillRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	r.EventName = r.EventType.Name()
	if r.EventType != UserDefined {
		r.UserDefinedName = ""
	}
	return &r, nil
}

// FabricatedChannel is a channel-shaped view of a record, used by backends
// that feed records through templating or variable-expansion logic written
// against channels.
type FabricatedChannel struct {
	// Vars holds the event-level variables: eventtype, eventtime, eventenum,
	// userdeftype, eventextra and BRIDGEPEER.
	Vars map[string]string

	CallerIDName    string
	CallerIDNumber  string
	CallerIDANI     string
	CallerIDRDNIS   string
	CallerIDDNID    string
	Extension       string
	Context         string
	Name            string
	UniqueID        string
	LinkedID        string
	AccountCode     string
	PeerAccount     string
	UserField       string
	AMAFlags        int
	Application     string
	ApplicationData string
}

// FabricateChannel builds a channel-shaped view from a wire-form record.
// The eventtype variable carries the user-defined name for USER_DEFINED
// events and the canonical event name otherwise; eventtime is rendered with
// the configured dateformat.
func FabricateChannel(data []byte, cfg *Config) (*FabricatedChannel, error) {
	r, err := FillRecord(data)
	if err != nil {
		return nil, err
	}

	mixedName := r.EventName
	if r.EventType == UserDefined {
		mixedName = r.UserDefinedName
	}

	ch := &FabricatedChannel{
		Vars: map[string]string{
			"eventtype":   mixedName,
			"eventtime":   formatEventTime(cfg.DateFormat, r.EventTimeSec, r.EventTimeUsec),
			"eventenum":   r.EventName,
			"userdeftype": r.UserDefinedName,
			"eventextra":  r.Extra,
			"BRIDGEPEER":  r.Peer,
		},
		CallerIDName:    r.CallerIDName,
		CallerIDNumber:  r.CallerIDNumber,
		CallerIDANI:     r.CallerIDANI,
		CallerIDRDNIS:   r.CallerIDRDNIS,
		CallerIDDNID:    r.CallerIDDNID,
		Extension:       r.Extension,
		Context:         r.Context,
		Name:            r.ChannelName,
		UniqueID:        r.UniqueID,
		LinkedID:        r.LinkedID,
		AccountCode:     r.AccountCode,
		PeerAccount:     r.LegacyPeerAccount(),
		UserField:       r.UserField,
		AMAFlags:        r.AMAFlags,
		Application:     r.ApplicationName,
		ApplicationData: r.ApplicationData,
	}

	return ch, nil
}

// formatEventTime renders an event timestamp with the given strftime pattern,
// falling back to "<sec>.<usec>" when the pattern is empty or invalid.
func formatEventTime(pattern string, sec, usec int64) string {
	if pattern != "" {
		formatted, err := strftime.Format(pattern, time.Unix(sec, usec*1000))
		if err == nil {
			return formatted
		}
	}
	return fmt.Sprintf("%d.%06d", sec, usec)
}
