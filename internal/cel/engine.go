// Package cel implements the Channel Event Logging engine: it correlates
// channel, bridge, parking and dial state messages into typed CEL event
// records and fans them out to registered backends.
package cel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/metrics"
)

// Engine is the CEL correlation and dispatch core. All handler entry points
// tolerate concurrent invocation against the shared state; the message router
// serializes invocations per subscription.
type Engine struct {
	log zerolog.Logger

	cfg        atomic.Pointer[Config]
	linkedIDs  *linkedIDTracker
	dialStatus *dialStatusStore
	backends   *backendRegistry

	router *celRouter

	msgCount     atomic.Int64
	handlerCount sync.Map // type tag → *atomic.Int64
}

// New creates an engine with a disabled default configuration. Call Reload or
// SetConfig to activate it, and Attach to bind it to a message bus.
func New(log zerolog.Logger) *Engine {
	e := &Engine{
		log:        log.With().Str("component", "cel").Logger(),
		linkedIDs:  newLinkedIDTracker(),
		dialStatus: newDialStatusStore(),
		backends:   newBackendRegistry(),
	}
	e.cfg.Store(DefaultConfig())
	return e
}

// Config returns the current configuration snapshot. The returned value is
// immutable; handlers load it once per invocation.
func (e *Engine) Config() *Config {
	return e.cfg.Load()
}

// SetConfig validates and atomically swaps in a new configuration. The
// previous configuration stays in effect when validation fails.
func (e *Engine) SetConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg.Store(cfg)
	e.log.Info().
		Bool("enabled", cfg.Enable).
		Strs("events", cfg.Events.Names()).
		Strs("apps", cfg.AppNames()).
		Msg("configuration applied")
	return nil
}

// Reload loads cel.conf from the given path and applies it. On any error the
// previous configuration remains active.
func (e *Engine) Reload(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		e.log.Error().Err(err).Str("path", path).Msg("config reload rejected, keeping previous config")
		return err
	}
	return e.SetConfig(cfg)
}

// Enabled reports whether event logging is currently enabled.
func (e *Engine) Enabled() bool {
	return e.cfg.Load().Enable
}

// RegisterBackend adds a named event sink. Names are unique; registering a
// duplicate or empty name fails.
func (e *Engine) RegisterBackend(name string, fn BackendFunc) error {
	if err := e.backends.Register(name, fn); err != nil {
		return err
	}
	e.log.Info().Str("backend", name).Msg("backend registered")
	return nil
}

// UnregisterBackend removes a named event sink. Unregistering an absent name
// fails without side effects.
func (e *Engine) UnregisterBackend(name string) error {
	if err := e.backends.Unregister(name); err != nil {
		return err
	}
	e.log.Info().Str("backend", name).Msg("backend unregistered")
	return nil
}

// Backends returns the registered backend names in sorted order.
func (e *Engine) Backends() []string {
	return e.backends.Names()
}

// trackEvent reports whether the given event type is tracked by the current
// configuration.
func (e *Engine) trackEvent(et EventType) bool {
	return e.cfg.Load().Events.Track(et)
}

// report runs one candidate event through the configuration gate and, if it
// passes, builds the record and fans it out.
//
// The linkedid acquisition on CHANNEL_START happens before the event mask is
// consulted: LINKEDID_END bookkeeping is needed even when CHANNEL_START
// itself is not reported.
func (e *Engine) report(snap *ChannelSnapshot, et EventType, userEventName string, extra map[string]any) error {
	cfg := e.cfg.Load()

	if !cfg.Enable {
		return nil
	}

	if et == ChannelStart && cfg.Events.Track(LinkedIDEnd) {
		if err := e.linkedIDs.Acquire(snap.LinkedID); err != nil {
			e.log.Error().Err(err).Str("channel", snap.Name).Msg("linkedid acquire failed")
			metrics.EventsDroppedTotal.WithLabelValues("linkedid").Inc()
			return err
		}
		metrics.LinkedIDsActive.Set(float64(e.linkedIDs.Len()))
	}

	if !cfg.Events.Track(et) {
		return nil
	}

	if (et == AppStart || et == AppEnd) && !cfg.TrackApp(snap.Application) {
		metrics.EventsDroppedTotal.WithLabelValues("app_filter").Inc()
		return nil
	}

	rec, err := BuildRecord(snap, et, userEventName, extra)
	if err != nil {
		e.log.Error().Err(err).Str("event", et.Name()).Msg("record build failed, dropping event")
		metrics.EventsDroppedTotal.WithLabelValues("build").Inc()
		return err
	}

	metrics.EventsEmittedTotal.WithLabelValues(et.Name()).Inc()
	e.backends.Distribute(rec)
	return nil
}

// retireLinkedID drops one channel's reference on its linkedid and emits
// LINKEDID_END, attributed to that channel's snapshot, when it was the last
// one. Called whenever a channel is destroyed or changes linkedid.
func (e *Engine) retireLinkedID(snap *ChannelSnapshot) {
	if snap.LinkedID == "" || !e.trackEvent(LinkedIDEnd) {
		return
	}

	retired, found := e.linkedIDs.Release(snap.LinkedID)
	if !found {
		e.log.Error().Str("linkedid", snap.LinkedID).Msg("something weird happened, couldn't find linkedid")
		return
	}
	metrics.LinkedIDsActive.Set(float64(e.linkedIDs.Len()))

	if retired {
		_ = e.report(snap, LinkedIDEnd, "", nil)
	}
}

// incHandler bumps the per-type dispatch counter used by the status surface.
func (e *Engine) incHandler(typeTag string) {
	e.msgCount.Add(1)
	v, _ := e.handlerCount.LoadOrStore(typeTag, &atomic.Int64{})
	v.(*atomic.Int64).Add(1)
	metrics.MessagesRoutedTotal.WithLabelValues(typeTag).Inc()
}

// HandlerCounts returns a copy of the per-type dispatch counters.
func (e *Engine) HandlerCounts() map[string]int64 {
	counts := make(map[string]int64)
	e.handlerCount.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return counts
}
