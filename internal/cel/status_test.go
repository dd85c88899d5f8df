package cel

import (
	"strings"
	"testing"
)

func TestWriteStatusDisabled(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	var buf strings.Builder
	e.WriteStatus(&buf)

	if got := buf.String(); got != "CEL Logging: Disabled\n" {
		t.Errorf("WriteStatus() = %q", got)
	}
}

func TestWriteStatusEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enable = true
	cfg.Events = EventSet(0).With(ChannelStart).With(AppStart)
	cfg.Apps["dial"] = struct{}{}
	e, _ := newTestEngine(t, cfg)

	var buf strings.Builder
	e.WriteStatus(&buf)
	got := buf.String()

	for _, want := range []string{
		"CEL Logging: Enabled\n",
		"CEL Tracking Event: CHAN_START\n",
		"CEL Tracking Event: APP_START\n",
		"CEL Tracking Application: dial\n",
		"CEL Event Subscriber: capture\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
}

func TestStatusSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, allEventsConfig())
	e.incHandler(TypeCacheUpdate)

	st := e.Status()
	if !st.Enabled {
		t.Error("Enabled = false")
	}
	if len(st.Backends) != 1 || st.Backends[0] != "capture" {
		t.Errorf("Backends = %v", st.Backends)
	}
	if st.MessagesTotal != 1 || st.MessagesByType[TypeCacheUpdate] != 1 {
		t.Errorf("counters = %d/%v", st.MessagesTotal, st.MessagesByType)
	}
}
