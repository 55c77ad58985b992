package core

import "sync"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// DebugLevel is the severity of a diagnostic report. Lower is more severe.
type DebugLevel uint8

const (
	DebugLevelError DebugLevel = iota
	DebugLevelInfo
	DebugLevelDetailed
	DebugLevelVeryDetailed
)

// DebugID is the symbolic code of a diagnostic report
type DebugID uint8

const (
	DebugInvalid DebugID = iota
	DebugIoOperationNotImplemented
	DebugUnknownCommand
	DebugMalformedCommand
	DebugBufferOverflow
	DebugInvalidPin
)

// Debugger receives diagnostic reports. Implementations must not block; the IO
// layer calls EmitDebug inline from hardware operations.
type Debugger interface {
	EmitDebug(level DebugLevel, id DebugID)
}

// DebugFunc adapts a plain function to the Debugger interface
type DebugFunc func(level DebugLevel, id DebugID)

func (f DebugFunc) EmitDebug(level DebugLevel, id DebugID) {
	f(level, id)
}

// NopDebugger discards every report
type NopDebugger struct{}

func (NopDebugger) EmitDebug(DebugLevel, DebugID) {}

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, stdout, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// LevelFilter forwards reports at or below a severity threshold.
// The threshold can be changed at runtime, e.g. by the set_debug_level command.
type LevelFilter struct {
	mu    sync.Mutex
	level DebugLevel
	next  Debugger
}

// NewLevelFilter creates a filter in front of next
func NewLevelFilter(level DebugLevel, next Debugger) *LevelFilter {
	return &LevelFilter{level: level, next: next}
}

// SetLevel changes the most verbose level that is still forwarded
func (f *LevelFilter) SetLevel(level DebugLevel) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the current threshold
func (f *LevelFilter) Level() DebugLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *LevelFilter) EmitDebug(level DebugLevel, id DebugID) {
	if level > f.Level() || f.next == nil {
		return
	}
	f.next.EmitDebug(level, id)
}

// DebugEvent is one recorded diagnostic report
type DebugEvent struct {
	Level DebugLevel
	ID    DebugID
	Time  int64 // milliseconds, from the ring's clock
}

const (
	DebugRingSize = 32 // Keep last 32 reports for post-mortem
)

// DebugRing records the most recent reports for post-mortem inspection.
// Recording is non-blocking and never allocates.
type DebugRing struct {
	mu    sync.Mutex
	ring  [DebugRingSize]DebugEvent
	head  uint8
	total uint32
	clock func() int64
}

// NewDebugRing creates a ring. clock may be nil, in which case events carry time 0.
func NewDebugRing(clock func() int64) *DebugRing {
	return &DebugRing{clock: clock}
}

func (r *DebugRing) EmitDebug(level DebugLevel, id DebugID) {
	var now int64
	if r.clock != nil {
		now = r.clock()
	}
	r.mu.Lock()
	r.ring[r.head] = DebugEvent{Level: level, ID: id, Time: now}
	r.head = (r.head + 1) % DebugRingSize
	r.total++
	r.mu.Unlock()
}

// Count returns the number of reports recorded since the last Clear,
// including those already overwritten
func (r *DebugRing) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.total)
}

// Events returns the retained reports from oldest to newest
func (r *DebugRing) Events() []DebugEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int(r.total)
	if n > DebugRingSize {
		n = DebugRingSize
	}
	events := make([]DebugEvent, 0, n)
	start := (int(r.head) - n + DebugRingSize) % DebugRingSize
	for i := 0; i < n; i++ {
		events = append(events, r.ring[(start+i)%DebugRingSize])
	}
	return events
}

// Dump writes the retained reports through w, oldest first
func (r *DebugRing) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	w("[DEBUG] === Debug Ring Dump ===")
	for _, evt := range r.Events() {
		w("[DEBUG] t=" + itoa64(evt.Time) + " " + evt.Level.String() + " " + evt.ID.String())
	}
	w("[DEBUG] === End Dump ===")
}

// Clear forgets all recorded reports
func (r *DebugRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ring {
		r.ring[i] = DebugEvent{}
	}
	r.head = 0
	r.total = 0
}

// MultiDebugger fans a report out to several debuggers in order
type MultiDebugger []Debugger

func (m MultiDebugger) EmitDebug(level DebugLevel, id DebugID) {
	for _, d := range m {
		if d != nil {
			d.EmitDebug(level, id)
		}
	}
}

func (l DebugLevel) String() string {
	switch l {
	case DebugLevelError:
		return "error"
	case DebugLevelInfo:
		return "info"
	case DebugLevelDetailed:
		return "detailed"
	case DebugLevelVeryDetailed:
		return "very_detailed"
	}
	return "level(" + itoa(int(l)) + ")"
}

func (id DebugID) String() string {
	switch id {
	case DebugInvalid:
		return "Invalid"
	case DebugIoOperationNotImplemented:
		return "IoOperationNotImplemented"
	case DebugUnknownCommand:
		return "UnknownCommand"
	case DebugMalformedCommand:
		return "MalformedCommand"
	case DebugBufferOverflow:
		return "BufferOverflow"
	case DebugInvalidPin:
		return "InvalidPin"
	}
	return "debug(" + itoa(int(id)) + ")"
}
