// Package clipboard copies terminal text to, and pastes from, the system
// clipboard using whatever native tool the platform offers.
package clipboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/yaaa-term/yaaa/internal/platform"
)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("no content to copy")

// ErrUnavailable means no clipboard tool was found.
var ErrUnavailable = errors.New("no clipboard method available (install pbcopy, xclip, xsel, or wl-clipboard)")

// CopyResult contains metadata about a successful clipboard copy operation.
type CopyResult struct {
	Method    string // e.g. "pbcopy", "xclip", "osc52"
	ByteSize  int
	LineCount int
}

// tool is one native clipboard command.
type tool struct {
	name string
	args []string
}

// Clipboard talks to the system clipboard. The zero value is not usable;
// use New.
type Clipboard struct {
	platform platform.Platform
	getenv   func(string) string
	lookPath func(string) (string, error)
	run      func(name string, args []string, stdin string) ([]byte, error)
	// tty receives OSC 52 sequences when no native tool works.
	tty func() (io.WriteCloser, error)
}

// New returns a Clipboard for the current platform.
func New() *Clipboard {
	return &Clipboard{
		platform: platform.Detect(),
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		run:      runTool,
		tty: func() (io.WriteCloser, error) {
			return os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		},
	}
}

func runTool(name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (c *Clipboard) copyTools() []tool {
	switch c.platform {
	case platform.PlatformMacOS:
		return []tool{{name: "pbcopy"}}
	case platform.PlatformWSL, platform.PlatformWindows:
		return []tool{{name: "clip.exe"}}
	case platform.PlatformLinux:
		var tools []tool
		// Wayland takes priority over X11
		if c.getenv("WAYLAND_DISPLAY") != "" {
			tools = append(tools, tool{name: "wl-copy"})
		}
		return append(tools,
			tool{name: "xclip", args: []string{"-selection", "clipboard"}},
			tool{name: "xsel", args: []string{"--clipboard", "--input"}},
		)
	}
	return nil
}

func (c *Clipboard) pasteTools() []tool {
	switch c.platform {
	case platform.PlatformMacOS:
		return []tool{{name: "pbpaste"}}
	case platform.PlatformWSL, platform.PlatformWindows:
		return []tool{{name: "powershell.exe", args: []string{"-NoProfile", "-Command", "Get-Clipboard"}}}
	case platform.PlatformLinux:
		var tools []tool
		if c.getenv("WAYLAND_DISPLAY") != "" {
			tools = append(tools, tool{name: "wl-paste", args: []string{"--no-newline"}})
		}
		return append(tools,
			tool{name: "xclip", args: []string{"-selection", "clipboard", "-o"}},
			tool{name: "xsel", args: []string{"--clipboard", "--output"}},
		)
	}
	return nil
}

// Copy puts text on the clipboard. Native tools are tried first, then an
// OSC 52 sequence written to the controlling terminal.
func (c *Clipboard) Copy(text string) (*CopyResult, error) {
	if text == "" {
		return nil, ErrEmpty
	}
	res := &CopyResult{ByteSize: len(text), LineCount: countLines(text)}

	for _, t := range c.copyTools() {
		path, err := c.lookPath(t.name)
		if err != nil {
			continue
		}
		if _, err := c.run(path, t.args, text); err == nil {
			res.Method = t.name
			return res, nil
		}
	}

	if err := c.copyOSC52(text); err != nil {
		return nil, fmt.Errorf("%w: OSC 52 failed: %v", ErrUnavailable, err)
	}
	res.Method = "osc52"
	return res, nil
}

// Paste reads text from the clipboard. Windows line endings are normalized
// to \n.
func (c *Clipboard) Paste() (string, error) {
	for _, t := range c.pasteTools() {
		path, err := c.lookPath(t.name)
		if err != nil {
			continue
		}
		out, err := c.run(path, t.args, "")
		if err != nil {
			continue
		}
		text := strings.ReplaceAll(string(out), "\r\n", "\n")
		if c.platform == platform.PlatformWSL || c.platform == platform.PlatformWindows {
			// Get-Clipboard appends a newline.
			text = strings.TrimSuffix(text, "\n")
		}
		return text, nil
	}
	return "", ErrUnavailable
}

func (c *Clipboard) copyOSC52(text string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	seq := generateOSC52(encoded, c.getenv("TMUX") != "")

	// Write to the tty to bypass the TUI's own stdout.
	tty, err := c.tty()
	if err != nil {
		return fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	_, err = io.WriteString(tty, seq)
	return err
}

// generateOSC52 builds the OSC 52 escape sequence.
// If inTmux is true, wraps it in a DCS passthrough for tmux compatibility.
func generateOSC52(base64Content string, inTmux bool) string {
	osc := "\x1b]52;c;" + base64Content + "\x07"
	if inTmux {
		// tmux DCS passthrough: \ePtmux;\e{OSC}\e\\
		return "\x1bPtmux;\x1b" + osc + "\x1b\\"
	}
	return osc
}

// countLines counts lines in text. A trailing newline does not add an
// extra line.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// BracketedPaste wraps text in bracketed paste markers so shells and
// editors treat it as pasted input rather than typed keys.
func BracketedPaste(text string) []byte {
	return []byte("\x1b[200~" + text + "\x1b[201~")
}
