package backend

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/cel"
)

func TestCSVWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cel.csv")

	c, err := NewCSV(path, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCSV() error: %v", err)
	}

	rec, err := cel.BuildRecord(&cel.ChannelSnapshot{
		UniqueID:       "u1",
		LinkedID:       "u1",
		Name:           "PJSIP/alice-00000001",
		Exten:          "2000",
		Context:        "internal",
		CallerIDName:   "Alice",
		CallerIDNumber: "1000",
		AMAFlags:       3,
	}, cel.Answer, "", nil)
	if err != nil {
		t.Fatalf("BuildRecord() error: %v", err)
	}

	c.Write(rec)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	row := rows[0]
	if row[0] != "ANSWER" {
		t.Errorf("eventtype column = %q", row[0])
	}
	if row[2] != "Alice" || row[3] != "1000" {
		t.Errorf("caller columns = %q/%q", row[2], row[3])
	}
	if row[9] != "PJSIP/alice-00000001" {
		t.Errorf("channel column = %q", row[9])
	}
	if row[12] != "3" {
		t.Errorf("amaflags column = %q", row[12])
	}
}

func TestCSVUserDefinedName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cel.csv")
	c, err := NewCSV(path, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCSV() error: %v", err)
	}

	rec, _ := cel.BuildRecord(&cel.ChannelSnapshot{UniqueID: "u1", LinkedID: "u1"}, cel.UserDefined, "MyEvent", nil)
	c.Write(rec)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Fatalf("read back: rows=%d err=%v", len(rows), err)
	}
	if rows[0][0] != "MyEvent" {
		t.Errorf("eventtype column = %q, want the user-defined name", rows[0][0])
	}
}

// The dateformat pattern is read per record, so a config reload after the
// backend is opened changes how subsequent rows render their timestamp.
func TestCSVDateFormatFollowsReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cel.csv")

	var pattern atomic.Value
	pattern.Store("")

	c, err := NewCSV(path, func() string { return pattern.Load().(string) }, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCSV() error: %v", err)
	}

	// Pattern swapped after the backend was built, as a reload would do.
	pattern.Store("%Y")

	rec, _ := cel.BuildRecord(&cel.ChannelSnapshot{UniqueID: "u1", LinkedID: "u1"}, cel.Answer, "", nil)
	rec.EventTimeSec = 1700000000 // 2023-11-14 UTC
	rec.EventTimeUsec = 0

	c.Write(rec)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Fatalf("read back: rows=%d err=%v", len(rows), err)
	}
	if rows[0][1] != "2023" {
		t.Errorf("eventtime column = %q, want the reloaded pattern applied", rows[0][1])
	}
}
