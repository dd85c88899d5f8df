package cel

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// capture is a test backend that records everything distributed to it. It is
// safe for use from the router's dispatch goroutine.
type capture struct {
	mu   sync.Mutex
	recs []*Record
}

func (c *capture) write(rec *Record) {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
}

func (c *capture) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.recs))
	for i, rec := range c.recs {
		names[i] = rec.EventName
	}
	return names
}

func (c *capture) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

func newTestEngine(t *testing.T, cfg *Config) (*Engine, *capture) {
	t.Helper()
	e := New(zerolog.Nop())
	if cfg != nil {
		if err := e.SetConfig(cfg); err != nil {
			t.Fatalf("SetConfig() error: %v", err)
		}
	}
	sink := &capture{}
	if err := e.RegisterBackend("capture", sink.write); err != nil {
		t.Fatalf("RegisterBackend() error: %v", err)
	}
	return e, sink
}

func allEventsConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enable = true
	cfg.Events = EventSetAll
	return cfg
}

func assertEvents(t *testing.T, sink *capture, want ...string) {
	t.Helper()
	got := sink.names()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func snap(uniqueid string) *ChannelSnapshot {
	return &ChannelSnapshot{
		UniqueID: uniqueid,
		LinkedID: uniqueid,
		Name:     "PJSIP/alice-" + uniqueid,
	}
}

func TestEngineDisabledDropsEverything(t *testing.T) {
	e, sink := newTestEngine(t, nil) // default config: disabled

	e.HandleCacheUpdate(nil, snap("u1"))
	e.HandleCacheUpdate(snap("u1"), nil)
	e.HandleBridgeEnter(&BridgeMsg{Bridge: &BridgeSnapshot{UniqueID: "b1"}, Channel: snap("u1")})

	if len(sink.recs) != 0 {
		t.Errorf("disabled engine emitted %v", sink.names())
	}
}

func TestEngineChannelLifecycle(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	s := snap("u1")
	e.HandleCacheUpdate(nil, s)
	e.HandleCacheUpdate(s, nil)

	assertEvents(t, sink, "CHAN_START", "CHAN_END", "LINKEDID_END")
}

func TestEngineSharedLinkedID(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	caller := snap("u1")
	peer := snap("u2")
	peer.LinkedID = caller.LinkedID

	e.HandleCacheUpdate(nil, caller)
	e.HandleCacheUpdate(nil, peer)
	e.HandleCacheUpdate(caller, nil)

	// The peer still holds the linkedid, so no LINKEDID_END yet.
	assertEvents(t, sink, "CHAN_START", "CHAN_START", "CHAN_END")

	e.HandleCacheUpdate(peer, nil)
	assertEvents(t, sink, "CHAN_START", "CHAN_START", "CHAN_END", "CHAN_END", "LINKEDID_END")
}

func TestEngineLinkedIDTrackedEvenWhenChanStartIsNot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enable = true
	cfg.Events = EventSet(0).With(LinkedIDEnd)
	e, sink := newTestEngine(t, cfg)

	s := snap("u1")
	e.HandleCacheUpdate(nil, s)
	e.HandleCacheUpdate(s, nil)

	// CHAN_START and CHAN_END are filtered, LINKEDID_END still fires.
	assertEvents(t, sink, "LINKEDID_END")
}

func TestEngineEmptyLinkedIDDropped(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	s := snap("u1")
	s.LinkedID = ""
	e.HandleCacheUpdate(nil, s)

	if len(sink.recs) != 0 {
		t.Errorf("channel without linkedid emitted %v", sink.names())
	}
}

func TestEngineAnswer(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	before := snap("u1")
	before.State = StateRinging
	after := snap("u1")
	after.State = StateUp

	e.HandleCacheUpdate(before, after)
	assertEvents(t, sink, "ANSWER")

	// Staying up is not another answer.
	e.HandleCacheUpdate(after, after)
	assertEvents(t, sink, "ANSWER")
}

func TestEngineHangupCarriesDialStatus(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	alive := snap("u1")
	e.HandleDial(&DialMsg{Caller: alive, DialStatus: "BUSY"})

	dead := snap("u1")
	dead.Dead = true
	dead.HangupCause = 17
	dead.HangupSource = dead.Name

	e.HandleCacheUpdate(alive, dead)
	assertEvents(t, sink, "HANGUP")

	var extra map[string]any
	if err := json.Unmarshal([]byte(sink.recs[0].Extra), &extra); err != nil {
		t.Fatalf("hangup extra: %v", err)
	}
	if extra["dialstatus"] != "BUSY" {
		t.Errorf("dialstatus = %v, want BUSY", extra["dialstatus"])
	}
	if extra["hangupcause"] != float64(17) {
		t.Errorf("hangupcause = %v, want 17", extra["hangupcause"])
	}
	if extra["hangupsource"] != dead.Name {
		t.Errorf("hangupsource = %v", extra["hangupsource"])
	}

	// The status was consumed by the hangup.
	if e.dialStatus.Len() != 0 {
		t.Errorf("dialstatus store length = %d after hangup", e.dialStatus.Len())
	}
}

func TestEngineAppChangeOrdering(t *testing.T) {
	cfg := allEventsConfig()
	cfg.Apps["dial"] = struct{}{}
	e, sink := newTestEngine(t, cfg)

	inDial := snap("u1")
	inDial.Application = "Dial"
	inDial.Data = "PJSIP/bob"

	dead := snap("u1")
	dead.Dead = true

	// The app ends and the channel dies in one transition: APP_END must
	// reach backends before HANGUP.
	e.HandleCacheUpdate(inDial, dead)
	assertEvents(t, sink, "APP_END", "HANGUP")
}

func TestEngineAppTransition(t *testing.T) {
	cfg := allEventsConfig()
	cfg.Apps["dial"] = struct{}{}
	cfg.Apps["queue"] = struct{}{}
	e, sink := newTestEngine(t, cfg)

	inDial := snap("u1")
	inDial.Application = "Dial"
	inQueue := snap("u1")
	inQueue.Application = "Queue"

	e.HandleCacheUpdate(inDial, inQueue)
	assertEvents(t, sink, "APP_END", "APP_START")

	if sink.recs[0].ApplicationName != "Dial" || sink.recs[1].ApplicationName != "Queue" {
		t.Errorf("apps = %q/%q", sink.recs[0].ApplicationName, sink.recs[1].ApplicationName)
	}
}

func TestEngineAppFilter(t *testing.T) {
	cfg := allEventsConfig()
	cfg.Apps["dial"] = struct{}{}
	e, sink := newTestEngine(t, cfg)

	created := snap("u1")
	inDial := snap("u1")
	inDial.Application = "Dial"
	inQueue := snap("u1")
	inQueue.Application = "Queue"

	e.HandleCacheUpdate(nil, created)
	e.HandleCacheUpdate(created, inDial)
	e.HandleCacheUpdate(inDial, inQueue)

	// Queue is not in the app list, so only Dial's APP events pass. The
	// filter never touches non-APP events.
	assertEvents(t, sink, "CHAN_START", "APP_START", "APP_END")
}

func TestEngineInternalChannelsIgnored(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	s := snap("u1")
	s.TechProperties = TechInternal
	e.HandleCacheUpdate(nil, s)
	e.HandleCacheUpdate(s, nil)

	if len(sink.recs) != 0 {
		t.Errorf("internal channel emitted %v", sink.names())
	}
}

func TestEngineLinkedIDChange(t *testing.T) {
	e, sink := newTestEngine(t, allEventsConfig())

	a := snap("u1")
	b := snap("u2")
	e.HandleCacheUpdate(nil, a)
	e.HandleCacheUpdate(nil, b)

	// Channel b is pulled into a's call tree: it takes a's linkedid and
	// releases its own, which was b's last reference.
	moved := snap("u2")
	moved.LinkedID = a.LinkedID
	e.HandleCacheUpdate(b, moved)

	assertEvents(t, sink, "CHAN_START", "CHAN_START", "LINKEDID_END")
	if sink.recs[2].LinkedID != "u2" {
		t.Errorf("LINKEDID_END attributed to %q, want u2", sink.recs[2].LinkedID)
	}
}

func TestEngineReloadKeepsPreviousOnError(t *testing.T) {
	e, _ := newTestEngine(t, allEventsConfig())

	bad := DefaultConfig()
	bad.Apps["dial"] = struct{}{} // no APP events tracked
	if err := e.SetConfig(bad); err == nil {
		t.Fatal("invalid config should be rejected")
	}
	if !e.Enabled() {
		t.Error("previous config should survive a rejected swap")
	}
	if err := e.SetConfig(nil); err == nil {
		t.Error("nil config should be rejected")
	}
}

func TestEngineHandlerCounts(t *testing.T) {
	e, _ := newTestEngine(t, allEventsConfig())

	e.incHandler(TypeCacheUpdate)
	e.incHandler(TypeCacheUpdate)
	e.incHandler(TypeDial)

	counts := e.HandlerCounts()
	if counts[TypeCacheUpdate] != 2 || counts[TypeDial] != 1 {
		t.Errorf("HandlerCounts() = %v", counts)
	}
}
