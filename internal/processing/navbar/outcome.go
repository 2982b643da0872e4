package navbar

import "fmt"

// Reason tells why a candidate band was not cut.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNoCandidate Reason = "no_candidate"
	ReasonDegenerate  Reason = "degenerate"
	ReasonBrightness  Reason = "brightness"
	ReasonButtonCount Reason = "button_count"
)

// Outcome is the result of one detection. When Detected is false the image
// was returned unchanged and Reason says which check stopped the cut.
type Outcome struct {
	Detected      bool
	CutRow        int
	BarBrightness float64
	ButtonCount   int
	Reason        Reason
}

func NotDetected(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

func (o Outcome) String() string {
	if !o.Detected {
		return fmt.Sprintf("not detected (%s)", o.Reason)
	}
	return fmt.Sprintf("detected: cut_row=%d brightness=%.1f buttons=%d", o.CutRow, o.BarBrightness, o.ButtonCount)
}

// Fields renders the outcome for structured log calls.
func (o Outcome) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"detected": o.Detected,
	}
	if o.Detected {
		fields["cut_row"] = o.CutRow
		fields["bar_brightness"] = o.BarBrightness
		fields["button_count"] = o.ButtonCount
	} else {
		fields["reason"] = string(o.Reason)
	}
	return fields
}
