// Package backend provides the event sinks that register with the engine:
// an appending CSV file writer, a batched Postgres writer and an MQTT
// publisher.
package backend

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/cel"
	"github.com/snarg/cel-engine/internal/metrics"
)

const csvQueueSize = 1024

// CSV appends one line per event to a file. Records are written on a
// dedicated goroutine; when the queue is full the record is dropped so the
// fan-out path never blocks on disk.
type CSV struct {
	dateFormat func() string
	queue      chan *cel.Record
	done       chan struct{}
	file       *os.File
	w          *csv.Writer
	log        zerolog.Logger
}

// NewCSV opens (or creates) the file at path for appending and starts the
// writer goroutine. dateFormat returns the strftime pattern for the eventtime
// column; it is consulted per record so config reloads take effect without a
// restart. A nil dateFormat means the "<sec>.<usec>" fallback.
func NewCSV(path string, dateFormat func() string, log zerolog.Logger) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	c := &CSV{
		dateFormat: dateFormat,
		queue:      make(chan *cel.Record, csvQueueSize),
		done:       make(chan struct{}),
		file:       f,
		w:          csv.NewWriter(f),
		log:        log.With().Str("component", "csv_backend").Str("path", path).Logger(),
	}
	go c.loop()

	return c, nil
}

// Write enqueues one record. Safe for concurrent use; never blocks.
func (c *CSV) Write(rec *cel.Record) {
	select {
	case c.queue <- rec:
	default:
		metrics.BackendErrorsTotal.WithLabelValues("csv").Inc()
		c.log.Warn().Str("event", rec.EventName).Msg("csv queue full, dropping record")
	}
}

// Close drains the queue, flushes and closes the file.
func (c *CSV) Close() error {
	close(c.queue)
	<-c.done
	return c.file.Close()
}

func (c *CSV) loop() {
	defer close(c.done)
	for rec := range c.queue {
		if err := c.w.Write(c.row(rec)); err != nil {
			metrics.BackendErrorsTotal.WithLabelValues("csv").Inc()
			c.log.Error().Err(err).Msg("csv write failed")
			continue
		}
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			metrics.BackendErrorsTotal.WithLabelValues("csv").Inc()
			c.log.Error().Err(err).Msg("csv flush failed")
		}
	}
}

// row renders the historical CSV column order. USER_DEFINED events carry the
// user-defined name in the eventtype column.
func (c *CSV) row(rec *cel.Record) []string {
	eventName := rec.EventName
	if rec.EventType == cel.UserDefined {
		eventName = rec.UserDefinedName
	}

	var pattern string
	if c.dateFormat != nil {
		pattern = c.dateFormat()
	}

	return []string{
		eventName,
		rec.FormatTime(pattern),
		rec.CallerIDName,
		rec.CallerIDNumber,
		rec.CallerIDANI,
		rec.CallerIDRDNIS,
		rec.CallerIDDNID,
		rec.Extension,
		rec.Context,
		rec.ChannelName,
		rec.ApplicationName,
		rec.ApplicationData,
		strconv.Itoa(rec.AMAFlags),
		rec.AccountCode,
		rec.UniqueID,
		rec.LinkedID,
		rec.UserField,
		rec.Peer,
		rec.Extra,
	}
}
