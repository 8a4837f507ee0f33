// Package eventlog records launcher lifecycle events.
//
// Events are structured entries sent to systemd-journald when it is
// reachable, so `journalctl GEMINI_LAUNCH_EVENT=exited` shows every server
// exit with its code. Elsewhere events are discarded.
package eventlog

import (
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/journal"
)

// EventLog stores structured entries.
type EventLog interface {
	// Write sends a structured entry to the backing store.
	Write(message string, fields map[string]string) error
}

// Lifecycle event constants.
const (
	EventStarted = "started"
	EventExited  = "exited"
	EventSignal  = "signal"
)

// Event field names.
const (
	FieldEvent            = "GEMINI_LAUNCH_EVENT"
	FieldCommand          = "GEMINI_LAUNCH_COMMAND"
	FieldPID              = "GEMINI_LAUNCH_PID"
	FieldExitCode         = "GEMINI_LAUNCH_EXIT_CODE"
	FieldSignal           = "GEMINI_LAUNCH_SIGNAL"
	FieldCredentialSource = "GEMINI_LAUNCH_CREDENTIAL_SOURCE"
)

// Open returns a journald-backed log when journald is available and a
// discarding log otherwise.
func Open() EventLog {
	if journal.Enabled() {
		return Journal{}
	}
	return Discard{}
}

// Journal writes entries to systemd-journald.
type Journal struct{}

func (Journal) Write(message string, fields map[string]string) error {
	return journal.Send(message, journal.PriInfo, fields)
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Write(string, map[string]string) error { return nil }

// Record is an entry captured by Memory.
type Record struct {
	Message string
	Fields  map[string]string
}

// Memory keeps entries in memory, for tests.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

func (m *Memory) Write(message string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{Message: message, Fields: maps.Clone(fields)})
	return nil
}

// Records returns a copy of everything written so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// EmitStarted writes a server started event. The credential value itself is
// never logged, only where it came from.
func EmitStarted(log EventLog, command []string, pid int, credentialSource string) error {
	return log.Write("Server started", map[string]string{
		FieldEvent:            EventStarted,
		FieldCommand:          strings.Join(command, " "),
		FieldPID:              strconv.Itoa(pid),
		FieldCredentialSource: credentialSource,
	})
}

// EmitExited writes a server exited event.
func EmitExited(log EventLog, command []string, pid, exitCode int) error {
	return log.Write("Server exited", map[string]string{
		FieldEvent:    EventExited,
		FieldCommand:  strings.Join(command, " "),
		FieldPID:      strconv.Itoa(pid),
		FieldExitCode: strconv.Itoa(exitCode),
	})
}

// EmitSignal writes an event for a termination signal relayed to the server.
func EmitSignal(log EventLog, pid int, signal string) error {
	return log.Write("Shutting down server", map[string]string{
		FieldEvent:  EventSignal,
		FieldPID:    strconv.Itoa(pid),
		FieldSignal: signal,
	})
}
