package pipeline

// EventKind tells what an Event reports.
type EventKind int

const (
	// EventState marks a state transition; State is the new state.
	EventState EventKind = iota
	// EventLog is an informational message. When Path is set, Message is a
	// format with one %s verb for it.
	EventLog
	// EventWarning is a recoverable problem; Err is set.
	EventWarning
	// EventProgress reports Done of Total items; Message is "i/total (pct%)".
	EventProgress
	// EventItemFailed reports one archive that could not be processed.
	EventItemFailed
	// EventDone is the last event of a quarantine run; Report is set.
	EventDone
)

// Event is one message from a workflow to its front end.
type Event struct {
	Kind    EventKind
	State   State
	Archive string
	Message string
	Path    string
	Done    int
	Total   int
	Err     error
	Report  *Report
}

// Report summarizes a quarantine run. Failures are counted, not fatal.
type Report struct {
	// Scanned is the number of archives read successfully.
	Scanned int
	// Unreadable is the number of archives that could not be opened.
	Unreadable int
	// Missing is the number of archives lacking the target locale.
	Missing int
	// Copied and Failed split Missing by copy outcome.
	Copied int
	Failed int
	// DestDir and Manifest are empty when nothing was missing.
	DestDir  string
	Manifest string
	// Names lists the archives written to the manifest.
	Names []string
	// Err combines every per-item error of the run.
	Err error
}
