package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShellAgentFallbackOrder(t *testing.T) {
	env := ShellEnv{InteractiveShell: "/bin/zsh", DefaultShell: "/bin/sh"}

	t.Run("nothing resolves", func(t *testing.T) {
		p := newProber()
		got := ResolveShell("missing-agent", KindAgent, p, env)
		assert.Equal(t, "/bin/sh", got)
		assert.Equal(t, []string{"missing-agent", "/usr/bin/bash", "bash", "/bin/sh"}, p.probed)
	})

	t.Run("bare bash resolves", func(t *testing.T) {
		p := newProber("bash", "/bin/sh")
		got := ResolveShell("missing-agent", KindAgent, p, env)
		assert.Equal(t, "bash", got)
		assert.Equal(t, []string{"missing-agent", "/usr/bin/bash", "bash"}, p.probed)
	})

	t.Run("full bash path wins over bare name", func(t *testing.T) {
		p := newProber("/usr/bin/bash", "bash")
		assert.Equal(t, "/usr/bin/bash", ResolveShell("missing-agent", KindAgent, p, env))
	})

	t.Run("requested agent resolves", func(t *testing.T) {
		p := newProber("opencode", "bash")
		assert.Equal(t, "opencode", ResolveShell("opencode", KindAgent, p, env))
		assert.Equal(t, []string{"opencode"}, p.probed)
	})
}

func TestResolveShellTerminalSkipsBashFallbacks(t *testing.T) {
	env := ShellEnv{InteractiveShell: "/bin/zsh", DefaultShell: "/bin/sh"}
	p := newProber()
	assert.Equal(t, "/bin/sh", ResolveShell("fish", KindTerminal, p, env))
	assert.Equal(t, []string{"fish", "/bin/sh"}, p.probed)
}

func TestResolveShellEmptyRequest(t *testing.T) {
	t.Run("uses interactive shell", func(t *testing.T) {
		p := newProber("/bin/zsh")
		env := ShellEnv{InteractiveShell: "/bin/zsh", DefaultShell: "/bin/sh"}
		assert.Equal(t, "/bin/zsh", ResolveShell("", KindTerminal, p, env))
	})

	t.Run("falls back to default when $SHELL unset", func(t *testing.T) {
		p := newProber("/bin/sh")
		env := ShellEnv{DefaultShell: "/bin/sh"}
		assert.Equal(t, "/bin/sh", ResolveShell("", KindTerminal, p, env))
		assert.Equal(t, []string{"/bin/sh"}, p.probed)
	})
}

func TestLookPathProberCaches(t *testing.T) {
	var calls atomic.Int32
	p := NewLookPathProber()
	p.lookPath = func(name string) (string, error) {
		calls.Add(1)
		if name == "zsh" {
			return "/bin/zsh", nil
		}
		return "", errors.New("not found")
	}

	assert.True(t, p.Resolves("zsh"))
	assert.True(t, p.Resolves("zsh"))
	assert.False(t, p.Resolves("nope"))
	assert.False(t, p.Resolves("nope"))
	assert.False(t, p.Resolves(""))
	assert.Equal(t, int32(2), calls.Load())

	p.Forget()
	assert.True(t, p.Resolves("zsh"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookPathProberConcurrent(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p := NewLookPathProber()
	p.lookPath = func(name string) (string, error) {
		calls.Add(1)
		<-release
		return "/bin/" + name, nil
	}

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Resolves("sh")
		}(i)
	}
	close(release)
	wg.Wait()

	for _, r := range results {
		require.True(t, r)
	}
	// Late goroutines may miss the in-flight call but then hit the cache.
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.True(t, p.Resolves("sh"))
}
