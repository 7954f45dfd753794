package terminal

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(s *Screen, n int) {
	for i := 0; i < n; i++ {
		s.Write([]byte(fmt.Sprintf("line %d\r\n", i)))
	}
}

func TestScreenLineCountNeverBelowViewport(t *testing.T) {
	s := NewScreen(24, 80, 0)
	assert.Equal(t, uint64(24), s.TotalLineCount())

	writeLines(s, 100)
	assert.Equal(t, uint64(101), s.TotalLineCount())
	assert.Equal(t, uint64(24), s.ViewportLineCount())
}

func TestScreenCarriageReturnOverwrites(t *testing.T) {
	s := NewScreen(5, 80, 0)
	s.Write([]byte("progress 10%\rprogress 99%"))
	lines := s.VisibleLines()
	assert.Equal(t, "progress 99%", lines[len(lines)-1])

	// CR split across writes still overwrites.
	s.Write([]byte("\r"))
	s.Write([]byte("done"))
	lines = s.VisibleLines()
	assert.Equal(t, "done", lines[len(lines)-1])
}

func TestScreenKeepsSGRInline(t *testing.T) {
	s := NewScreen(5, 80, 0)
	s.Write([]byte("\x1b[31mred\x1b[0m plain"))
	lines := s.VisibleLines()
	assert.Equal(t, "\x1b[31mred\x1b[0m plain", lines[0])
	assert.Equal(t, "red plain", s.Text())
}

func TestScreenBackspaceAndTab(t *testing.T) {
	s := NewScreen(5, 80, 0)
	s.Write([]byte("abc\bd\tx"))
	assert.Equal(t, "abd     x", s.VisibleLines()[0])
}

func TestScreenOSCTitle(t *testing.T) {
	s := NewScreen(5, 80, 0)

	titles := s.Write([]byte("\x1b]0;vim main.go\x07text"))
	assert.Equal(t, []string{"vim main.go"}, titles)
	assert.Equal(t, "text", s.VisibleLines()[0])

	// ST terminator, split across writes.
	titles = s.Write([]byte("\x1b]2;build"))
	assert.Empty(t, titles)
	titles = s.Write([]byte("ing\x1b\\"))
	assert.Equal(t, []string{"building"}, titles)

	// OSC 7 (cwd) is not a title.
	titles = s.Write([]byte("\x1b]7;file:///tmp\x07"))
	assert.Empty(t, titles)
}

func TestScreenAlternateScreenModes(t *testing.T) {
	for _, mode := range []string{"47", "1047", "1049"} {
		t.Run(mode, func(t *testing.T) {
			s := NewScreen(10, 80, 0)
			writeLines(s, 50)
			require.False(t, s.IsAlternateScreen())

			s.Write([]byte("\x1b[?" + mode + "h"))
			assert.True(t, s.IsAlternateScreen())
			assert.Equal(t, uint64(10), s.TotalLineCount())
			assert.Equal(t, uint64(0), s.DisplayOffset())

			s.Write([]byte("full screen app"))
			assert.Equal(t, "full screen app", s.VisibleLines()[0])

			s.Write([]byte("\x1b[?" + mode + "l"))
			assert.False(t, s.IsAlternateScreen())
			assert.Equal(t, uint64(51), s.TotalLineCount(), "normal buffer untouched by alternate output")
		})
	}
}

func TestScreenAlternateBufferBounded(t *testing.T) {
	s := NewScreen(5, 80, 0)
	s.Write([]byte("\x1b[?1049h"))
	writeLines(s, 40)
	assert.Len(t, s.VisibleLines(), 5)
	assert.Equal(t, uint64(5), s.TotalLineCount())
}

func TestScreenClearSequenceDropsHistory(t *testing.T) {
	s := NewScreen(24, 80, 0)
	writeLines(s, 1000)
	require.Equal(t, uint64(1001), s.TotalLineCount())

	// What `clear` emits.
	s.Write([]byte("\x1b[H\x1b[2J\x1b[3J"))
	assert.Equal(t, uint64(24), s.TotalLineCount())
	assert.Equal(t, "", s.Text())
}

func TestScreenEraseDisplayKeepsHistory(t *testing.T) {
	s := NewScreen(10, 80, 0)
	writeLines(s, 30)

	s.Write([]byte("\x1b[2J"))
	assert.Equal(t, uint64(22), s.TotalLineCount(), "visible screen dropped, history kept")

	s.Write([]byte("after"))
	lines := s.VisibleLines()
	assert.Equal(t, "after", lines[len(lines)-1])
}

func TestScreenScrolling(t *testing.T) {
	s := NewScreen(10, 80, 0)
	writeLines(s, 100)

	s.ScrollLines(5)
	assert.Equal(t, uint64(5), s.DisplayOffset())

	// New output keeps the view pinned.
	s.Write([]byte("more\r\n"))
	assert.Equal(t, uint64(6), s.DisplayOffset())

	s.ScrollToTop()
	assert.Equal(t, uint64(92), s.DisplayOffset())
	assert.Equal(t, "line 0", s.VisibleLines()[0])

	s.ScrollLines(1000)
	assert.Equal(t, uint64(92), s.DisplayOffset(), "clamped at top")

	s.ScrollLines(-1000)
	assert.Equal(t, uint64(0), s.DisplayOffset(), "clamped at bottom")

	s.ScrollLines(3)
	s.ScrollToBottom()
	assert.Equal(t, uint64(0), s.DisplayOffset())
}

func TestScreenDiscardHistory(t *testing.T) {
	s := NewScreen(10, 80, 0)
	writeLines(s, 100)
	s.ScrollLines(20)

	s.DiscardHistory()
	assert.Equal(t, uint64(10), s.TotalLineCount())
	assert.Equal(t, uint64(0), s.DisplayOffset())
	assert.True(t, strings.HasPrefix(s.VisibleLines()[0], "line 91"))
}

func TestScreenHistoryLimit(t *testing.T) {
	s := NewScreen(5, 80, 50)
	writeLines(s, 200)
	assert.Equal(t, uint64(50), s.TotalLineCount())
}

func TestScreenResize(t *testing.T) {
	s := NewScreen(10, 80, 0)
	writeLines(s, 30)
	s.ScrollToTop()

	s.Resize(20, 100)
	rows, cols := s.Size()
	assert.Equal(t, 20, rows)
	assert.Equal(t, 100, cols)
	assert.Equal(t, uint64(11), s.DisplayOffset(), "offset clamped to new max")
	assert.Len(t, s.VisibleLines(), 20)
}

func TestScreenScrollIgnoredOnAlternate(t *testing.T) {
	s := NewScreen(5, 80, 0)
	writeLines(s, 20)
	s.Write([]byte("\x1b[?1049h"))

	s.ScrollLines(3)
	s.ScrollToTop()
	s.DiscardHistory()
	assert.Equal(t, uint64(0), s.DisplayOffset())

	s.Write([]byte("\x1b[?1049l"))
	assert.Equal(t, uint64(21), s.TotalLineCount())
}

func TestAnalyzeTitle(t *testing.T) {
	assert.Equal(t, ActivityUnknown, AnalyzeTitle(""))
	assert.Equal(t, ActivityUnknown, AnalyzeTitle("bash"))
	assert.Equal(t, ActivityWorking, AnalyzeTitle("⠋ opencode"))
	assert.Equal(t, ActivityDone, AnalyzeTitle("✳ opencode"))
	assert.Equal(t, ActivityWorking, AnalyzeTitle("✳ ⠙ both"))
}
