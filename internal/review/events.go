package review

// Event kinds emitted by the review pipeline. The set is closed: consumers
// switch on Kind and rely on no other values appearing.
const (
	KindInfo         = "info"
	KindWarning      = "warning"
	KindOriginalDiff = "original_diff"
	KindChangedFiles = "changed_files"
	KindLint         = "lint"
	KindBugCheck     = "bugcheck"
	KindAutoFix      = "autofix"
	KindPostFixDiff  = "post_fix_diff"
)

// Stages for check events, marking whether a lint or bugcheck ran before or
// after automatic fixes were applied.
const (
	StageBeforeFix = "before_fix"
	StageAfterFix  = "after_fix"
)

// Event is one step of a review run. Which fields are set depends on Kind:
// info/warning carry Message, diff kinds carry Diff, changed_files carries
// Files, and the check kinds carry File, Output and ReturnCode. AutoFix events
// additionally carry Fixed.
type Event struct {
	Kind       string   `json:"type"`
	Stage      string   `json:"stage,omitempty"`
	Message    string   `json:"message,omitempty"`
	Diff       string   `json:"diff,omitempty"`
	Files      []string `json:"files,omitempty"`
	File       string   `json:"file,omitempty"`
	Output     string   `json:"output,omitempty"`
	ReturnCode *int     `json:"returncode,omitempty"`
	Fixed      *bool    `json:"fixed,omitempty"`
}

func infoEvent(message string) Event {
	return Event{Kind: KindInfo, Message: message}
}

func warningEvent(message string) Event {
	return Event{Kind: KindWarning, Message: message}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
