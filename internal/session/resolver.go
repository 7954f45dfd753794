package session

import (
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yaaa-term/yaaa/internal/platform"
)

// Shells tried after a missing agent command, before the OS default.
const (
	agentFallbackShell = "/usr/bin/bash"
	agentFallbackBare  = "bash"
)

// Prober answers whether a command name resolves to an executable. It only
// checks existence and never runs anything.
type Prober interface {
	Resolves(name string) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(name string) bool

func (f ProberFunc) Resolves(name string) bool { return f(name) }

// ShellEnv carries the OS facts the resolver needs.
type ShellEnv struct {
	// InteractiveShell is the user's shell ($SHELL), used when no command is requested.
	InteractiveShell string
	// DefaultShell is the hard-coded last resort and the spawn retry target.
	DefaultShell string
}

// DefaultShellEnv reads the environment of the current process.
func DefaultShellEnv() ShellEnv {
	return ShellEnv{
		InteractiveShell: platform.InteractiveShell(os.Getenv),
		DefaultShell:     platform.DefaultShell(),
	}
}

func (e ShellEnv) defaultShell() string {
	if e.DefaultShell == "" {
		return platform.DefaultShell()
	}
	return e.DefaultShell
}

// ResolveShell picks the executable to spawn. Candidates, in order: the
// requested command (or the interactive shell, or the default shell when
// both are empty); for agents, bash by full path and by bare name; the
// default shell. The first candidate the prober resolves wins. When none
// resolve the default shell is returned anyway and the spawn decides.
func ResolveShell(requested string, kind Kind, probe Prober, env ShellEnv) string {
	def := env.defaultShell()

	first := requested
	if first == "" {
		first = env.InteractiveShell
	}
	if first == "" {
		first = def
	}

	candidates := []string{first}
	if kind == KindAgent {
		candidates = append(candidates, agentFallbackShell, agentFallbackBare)
	}
	candidates = append(candidates, def)

	for _, c := range candidates {
		if probe.Resolves(c) {
			return c
		}
	}
	return def
}

// LookPathProber resolves names with exec.LookPath. Results are cached and
// concurrent probes of the same name share one lookup.
type LookPathProber struct {
	lookPath func(string) (string, error)
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[string]bool
}

// NewLookPathProber creates a prober backed by exec.LookPath.
func NewLookPathProber() *LookPathProber {
	return &LookPathProber{
		lookPath: exec.LookPath,
		cache:    make(map[string]bool),
	}
}

func (p *LookPathProber) Resolves(name string) bool {
	if name == "" {
		return false
	}

	p.mu.RLock()
	ok, cached := p.cache[name]
	p.mu.RUnlock()
	if cached {
		return ok
	}

	v, _, _ := p.group.Do(name, func() (any, error) {
		_, err := p.lookPath(name)
		found := err == nil
		p.mu.Lock()
		p.cache[name] = found
		p.mu.Unlock()
		return found, nil
	})
	return v.(bool)
}

// Forget drops cached results, e.g. after the user installed an agent or
// edited the configured commands.
func (p *LookPathProber) Forget() {
	p.mu.Lock()
	p.cache = make(map[string]bool)
	p.mu.Unlock()
}
