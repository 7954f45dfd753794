package terminal

// Activity is what a window title says about the program behind it.
// Coding agents set their title via OSC while they work:
//   - Braille spinner chars (U+2800-28FF) while actively working
//   - Done markers (✳✻✽✶✢) when a task completes
type Activity int

const (
	ActivityUnknown Activity = iota // No recognizable pattern (plain shells)
	ActivityWorking                 // Braille spinner detected
	ActivityDone                    // Done marker detected
)

// AnalyzeTitle classifies a window title. Spinner wins over done marker.
func AnalyzeTitle(title string) Activity {
	if title == "" {
		return ActivityUnknown
	}
	if containsBrailleChar(title) {
		return ActivityWorking
	}
	if containsDoneMarker(title) {
		return ActivityDone
	}
	return ActivityUnknown
}

func containsBrailleChar(s string) bool {
	for _, r := range s {
		if r >= 0x2800 && r <= 0x28FF {
			return true
		}
	}
	return false
}

func containsDoneMarker(s string) bool {
	for _, r := range s {
		switch r {
		case '✳', '✻', '✽', '✶', '✢':
			return true
		}
	}
	return false
}
