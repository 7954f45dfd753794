package terminal

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// DefaultHistoryLimit caps the normal buffer's scrollback.
const DefaultHistoryLimit = 10000

const (
	maxCSILen = 64
	maxOSCLen = 512
	tabWidth  = 8
)

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCharset
	stateCSI
	stateOSC
	stateOSCEscape
)

// Screen is a line-oriented model of terminal output. It is not a VT
// emulator: text is appended line by line, SGR colour sequences are kept
// inline, and only the sequences that change buffer topology are
// interpreted (alternate screen, erase display, window title). The cursor is
// always on the last line of the active buffer.
//
// Screen is not safe for concurrent use.
type Screen struct {
	rows, cols   int
	historyLimit int

	normal      []string
	screenStart int // index of the first line of the visible screen in normal
	offset      int // lines scrolled up from the bottom, normal buffer only

	alt       []string
	altActive bool

	pendingCR bool
	state     parseState
	seq       []byte
}

// NewScreen creates an empty screen with the given viewport size.
func NewScreen(rows, cols, historyLimit int) *Screen {
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Screen{
		rows:         rows,
		cols:         cols,
		historyLimit: historyLimit,
		normal:       []string{""},
	}
}

// Write feeds raw PTY output into the screen and returns any window titles
// set by OSC 0 or OSC 2, oldest first.
func (s *Screen) Write(p []byte) []string {
	var titles []string
	for _, b := range p {
		switch s.state {
		case stateGround:
			s.ground(b)
		case stateEscape:
			switch b {
			case '[':
				s.state = stateCSI
				s.seq = s.seq[:0]
			case ']':
				s.state = stateOSC
				s.seq = s.seq[:0]
			case '(', ')', '*', '+':
				s.state = stateCharset
			default:
				s.state = stateGround
			}
		case stateCharset:
			s.state = stateGround
		case stateCSI:
			if b >= 0x40 && b <= 0x7e {
				s.csi(string(s.seq), b)
				s.state = stateGround
				continue
			}
			s.seq = append(s.seq, b)
			if len(s.seq) > maxCSILen {
				s.state = stateGround
			}
		case stateOSC:
			switch b {
			case 0x07:
				if t, ok := parseTitle(s.seq); ok {
					titles = append(titles, t)
				}
				s.state = stateGround
			case 0x1b:
				s.state = stateOSCEscape
			default:
				s.seq = append(s.seq, b)
				if len(s.seq) > maxOSCLen {
					s.state = stateGround
				}
			}
		case stateOSCEscape:
			if b == '\\' {
				if t, ok := parseTitle(s.seq); ok {
					titles = append(titles, t)
				}
			}
			s.state = stateGround
		}
	}
	return titles
}

func (s *Screen) ground(b byte) {
	switch {
	case b == 0x1b:
		s.state = stateEscape
	case b == '\n':
		s.pendingCR = false
		s.newline()
	case b == '\r':
		s.pendingCR = true
	case b == '\b':
		s.backspace()
	case b == '\t':
		s.consumeCR()
		cur := s.current()
		w := ansi.StringWidth(cur)
		s.setCurrent(cur + strings.Repeat(" ", tabWidth-w%tabWidth))
	case b < 0x20 || b == 0x7f:
		// bell and other controls
	default:
		s.consumeCR()
		s.setCurrent(s.current() + string([]byte{b}))
	}
}

// consumeCR applies a carriage return that was not followed by a newline:
// the next output overwrites the line.
func (s *Screen) consumeCR() {
	if s.pendingCR {
		s.pendingCR = false
		s.setCurrent("")
	}
}

func (s *Screen) csi(params string, final byte) {
	switch final {
	case 'm':
		s.setCurrent(s.current() + "\x1b[" + params + "m")
	case 'h', 'l':
		if !strings.HasPrefix(params, "?") {
			return
		}
		for _, p := range strings.Split(params[1:], ";") {
			switch p {
			case "47", "1047", "1049":
				s.setAlternate(final == 'h')
			}
		}
	case 'J':
		switch params {
		case "2":
			s.eraseDisplay()
		case "3":
			s.eraseScrollback()
		}
	case 'H', 'f':
		// Full-screen programs redraw from the home position.
		if s.altActive {
			s.alt = []string{""}
		}
	}
}

func parseTitle(seq []byte) (string, bool) {
	code, rest, ok := strings.Cut(string(seq), ";")
	if !ok || (code != "0" && code != "2") {
		return "", false
	}
	return rest, true
}

func (s *Screen) buf() *[]string {
	if s.altActive {
		return &s.alt
	}
	return &s.normal
}

func (s *Screen) current() string {
	b := *s.buf()
	return b[len(b)-1]
}

func (s *Screen) setCurrent(line string) {
	b := s.buf()
	(*b)[len(*b)-1] = line
}

func (s *Screen) backspace() {
	cur := s.current()
	if cur == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(cur)
	s.setCurrent(cur[:len(cur)-size])
}

func (s *Screen) newline() {
	if s.altActive {
		s.alt = append(s.alt, "")
		if len(s.alt) > s.rows {
			s.alt = s.alt[len(s.alt)-s.rows:]
		}
		return
	}

	s.normal = append(s.normal, "")
	if s.offset > 0 {
		// Keep a scrolled-up view pinned to the same content.
		s.offset++
	}
	if len(s.normal)-s.screenStart > s.rows {
		s.screenStart = len(s.normal) - s.rows
	}
	if over := len(s.normal) - s.historyLimit; over > 0 {
		s.normal = s.normal[over:]
		s.screenStart -= over
		if s.screenStart < 0 {
			s.screenStart = 0
		}
	}
	s.clampOffset()
}

func (s *Screen) setAlternate(on bool) {
	if on == s.altActive {
		return
	}
	s.pendingCR = false
	s.altActive = on
	if on {
		s.alt = []string{""}
	} else {
		s.alt = nil
	}
}

// eraseDisplay clears the visible screen. Its content is dropped, not moved
// into history.
func (s *Screen) eraseDisplay() {
	if s.altActive {
		s.alt = []string{""}
		return
	}
	s.normal = append(s.normal[:s.screenStart], "")
	s.screenStart = len(s.normal) - 1
	s.pendingCR = false
	s.clampOffset()
}

// eraseScrollback drops everything above the visible screen.
func (s *Screen) eraseScrollback() {
	if s.altActive {
		return
	}
	s.dropHistory()
}

func (s *Screen) dropHistory() {
	if s.screenStart > 0 {
		s.normal = append([]string(nil), s.normal[s.screenStart:]...)
		s.screenStart = 0
	}
	s.offset = 0
}

func (s *Screen) maxOffset() int {
	if m := len(s.normal) - s.rows; m > 0 {
		return m
	}
	return 0
}

func (s *Screen) clampOffset() {
	if s.offset > s.maxOffset() {
		s.offset = s.maxOffset()
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// TotalLineCount is the active buffer's line count, never less than the
// viewport height.
func (s *Screen) TotalLineCount() uint64 {
	n := len(*s.buf())
	if n < s.rows {
		n = s.rows
	}
	return uint64(n)
}

func (s *Screen) IsAlternateScreen() bool { return s.altActive }

func (s *Screen) DisplayOffset() uint64 {
	if s.altActive {
		return 0
	}
	return uint64(s.offset)
}

func (s *Screen) ViewportLineCount() uint64 { return uint64(s.rows) }

func (s *Screen) ScrollToBottom() { s.offset = 0 }

func (s *Screen) ScrollToTop() {
	if s.altActive {
		return
	}
	s.offset = s.maxOffset()
}

func (s *Screen) ScrollLines(delta int) {
	if s.altActive {
		return
	}
	s.offset += delta
	s.clampOffset()
}

// DiscardHistory drops every normal-buffer line above the viewport.
func (s *Screen) DiscardHistory() {
	if s.altActive {
		return
	}
	if start := len(s.normal) - s.rows; start > s.screenStart {
		s.screenStart = start
	}
	s.dropHistory()
}

// VisibleLines returns the lines currently in view, top to bottom.
func (s *Screen) VisibleLines() []string {
	b := *s.buf()
	end := len(b)
	if !s.altActive {
		end -= s.offset
	}
	start := end - s.rows
	if start < 0 {
		start = 0
	}
	out := make([]string, end-start)
	copy(out, b[start:end])
	return out
}

// Text returns the visible lines without escape sequences and with trailing
// blank lines removed.
func (s *Screen) Text() string {
	lines := s.VisibleLines()
	for i, l := range lines {
		lines[i] = strings.TrimRight(ansi.Strip(l), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Resize changes the viewport size.
func (s *Screen) Resize(rows, cols int) {
	if rows > 0 {
		s.rows = rows
	}
	if cols > 0 {
		s.cols = cols
	}
	if len(s.alt) > s.rows {
		s.alt = s.alt[len(s.alt)-s.rows:]
	}
	if len(s.normal)-s.screenStart > s.rows {
		s.screenStart = len(s.normal) - s.rows
	}
	s.clampOffset()
}

// Size returns the viewport size.
func (s *Screen) Size() (rows, cols int) { return s.rows, s.cols }
