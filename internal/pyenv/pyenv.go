// Package pyenv resolves the interpreter used for test invocations, either
// from a virtualenv or from the host PATH, as an explicitly scoped resource:
// Acquire before the first invocation, Release guaranteed after the last.
package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrMissingVenv   = errors.New("virtualenv not found")
	ErrNoInterpreter = errors.New("interpreter not found")
	ErrBusy          = errors.New("environment already acquired")
)

// Environment describes where test interpreters come from: a virtualenv
// root, or the host PATH when Root is empty.
type Environment struct {
	Root        string
	Interpreter string

	mu     sync.Mutex
	active bool
}

func New(root, interpreter string) *Environment {
	return &Environment{Root: root, Interpreter: interpreter}
}

// ActiveEnv is a live acquisition of an Environment. It must be released on
// every exit path; Release is idempotent.
type ActiveEnv struct {
	interpreter string
	environ     []string

	releaseOnce sync.Once
	release     func()
}

// Acquire validates the environment and returns an ActiveEnv holding the
// resolved interpreter path and the child-process environment. While an
// ActiveEnv is live, a second Acquire fails with ErrBusy.
func (e *Environment) Acquire(ctx context.Context) (*ActiveEnv, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return nil, ErrBusy
	}

	interpreter, environ, err := e.resolve()
	if err != nil {
		return nil, err
	}

	e.active = true
	return &ActiveEnv{
		interpreter: interpreter,
		environ:     environ,
		release: func() {
			e.mu.Lock()
			e.active = false
			e.mu.Unlock()
		},
	}, nil
}

func (e *Environment) resolve() (string, []string, error) {
	if e.Root == "" {
		path, err := exec.LookPath(e.Interpreter)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrNoInterpreter, e.Interpreter, err)
		}
		return path, os.Environ(), nil
	}

	root, err := filepath.Abs(e.Root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrMissingVenv, e.Root, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", ErrMissingVenv, e.Root)
	}

	bin := filepath.Join(root, "bin")
	interpreter := filepath.Join(bin, e.Interpreter)
	if _, err := os.Stat(interpreter); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrNoInterpreter, interpreter)
	}

	return interpreter, activated(os.Environ(), root, bin), nil
}

// activated rewrites an environment the way bin/activate would: VIRTUAL_ENV
// set to the root, the venv bin directory prepended to PATH, and PYTHONHOME
// dropped so the venv's stdlib wins.
func activated(environ []string, root, bin string) []string {
	out := make([]string, 0, len(environ)+2)
	sawPath := false
	for _, kv := range environ {
		switch {
		case strings.HasPrefix(kv, "PYTHONHOME="):
			continue
		case strings.HasPrefix(kv, "VIRTUAL_ENV="):
			continue
		case strings.HasPrefix(kv, "PATH="):
			out = append(out, "PATH="+bin+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			sawPath = true
		default:
			out = append(out, kv)
		}
	}
	if !sawPath {
		out = append(out, "PATH="+bin)
	}
	return append(out, "VIRTUAL_ENV="+root)
}

// Interpreter returns the resolved interpreter executable path.
func (a *ActiveEnv) Interpreter() string {
	return a.interpreter
}

// Environ returns a copy of the child-process environment.
func (a *ActiveEnv) Environ() []string {
	out := make([]string, len(a.environ))
	copy(out, a.environ)
	return out
}

// Release returns the environment to its idle state. Safe to call more
// than once.
func (a *ActiveEnv) Release() {
	a.releaseOnce.Do(a.release)
}
