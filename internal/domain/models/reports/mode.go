package reports

// Mode tags how a report's markdown is interpreted.
type Mode string

const (
	// ModeStandard is free-form Markdown.
	ModeStandard Mode = "standard"
	// ModeHackerOne is a six-section delimited document.
	ModeHackerOne Mode = "hackerone"
)

// Modes lists every valid mode, for validation rules.
var Modes = []interface{}{ModeStandard, ModeHackerOne}

// Redaction controls how aggressively generated text anonymizes identifying details.
type Redaction string

const (
	RedactionNone   Redaction = "none"
	RedactionLow    Redaction = "low"
	RedactionMedium Redaction = "medium"
	RedactionHigh   Redaction = "high"
)

// Redactions lists every valid redaction level, for validation rules.
var Redactions = []interface{}{RedactionNone, RedactionLow, RedactionMedium, RedactionHigh}
