package session

import "fmt"

// Kind is what runs in a tab.
type Kind int

const (
	KindTerminal Kind = iota
	KindAgent
)

func (k Kind) String() string {
	if k == KindAgent {
		return "agent"
	}
	return "terminal"
}

// Label is the human-facing name used in tab labels.
func (k Kind) Label() string {
	if k == KindAgent {
		return "Agent"
	}
	return "Terminal"
}

// ParseKind maps a stored kind back to a Kind. Unknown and empty values are
// terminals so older snapshots load.
func ParseKind(s string) Kind {
	if s == "agent" {
		return KindAgent
	}
	return KindTerminal
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "agent":
		*k = KindAgent
	case "terminal", "":
		*k = KindTerminal
	default:
		return fmt.Errorf("unknown tab kind %q", string(b))
	}
	return nil
}
