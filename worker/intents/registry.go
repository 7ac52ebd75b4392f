// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"sync"

	"github.com/juju/errors"

	"github.com/juju/netcore/core/intent"
)

// ErrNoCompiler is returned when no compiler is registered for an
// intent's type or any of its ancestors.
const ErrNoCompiler = errors.ConstError("no compiler for intent type")

// ErrNoInstaller is returned when no installer is registered for an
// installable's type or any of its ancestors.
const ErrNoInstaller = errors.ConstError("no installer for intent type")

// ErrCompileDepth is returned when recursive compilation exceeds the
// depth bound.
const ErrCompileDepth = errors.ConstError("intent compilation exceeded maximum depth")

// maxCompileDepth bounds recursive compilation of intermediate
// intents.
const maxCompileDepth = 10

// Compiler turns an intent into sub-intents. The previous installables
// of the key are supplied so a compiler can produce a minimal-change
// replacement.
type Compiler interface {
	Compile(i intent.Intent, previous []intent.Intent) ([]intent.Intent, error)
}

// compilerRegistry dispatches compilation on the intent type
// hierarchy.
type compilerRegistry struct {
	mu        sync.RWMutex
	compilers map[string]Compiler
}

func newCompilerRegistry() *compilerRegistry {
	return &compilerRegistry{compilers: make(map[string]Compiler)}
}

func (r *compilerRegistry) register(t *intent.Type, c Compiler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compilers[t.Name] = c
}

func (r *compilerRegistry) unregister(t *intent.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.compilers, t.Name)
}

// lookup probes the type, then its ancestors, until a compiler is
// found.
func (r *compilerRegistry) lookup(t *intent.Type) (Compiler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ; t != nil; t = t.Parent {
		if c, ok := r.compilers[t.Name]; ok {
			return c, nil
		}
	}
	return nil, errors.Trace(ErrNoCompiler)
}

// compile produces the installable sub-intents for an intent,
// recursing through intermediate (non-installable) results.
func (r *compilerRegistry) compile(i intent.Intent, previous []intent.Intent) ([]intent.Intent, error) {
	return r.compileDepth(i, previous, 0)
}

func (r *compilerRegistry) compileDepth(i intent.Intent, previous []intent.Intent, depth int) ([]intent.Intent, error) {
	if depth >= maxCompileDepth {
		return nil, errors.Annotatef(ErrCompileDepth, "compiling %s", i.Key())
	}
	compiler, err := r.lookup(i.Type())
	if err != nil {
		return nil, errors.Annotatef(err, "compiling %s type %s", i.Key(), i.Type())
	}
	compiled, err := compiler.Compile(i, previous)
	if err != nil {
		return nil, errors.Annotatef(err, "compiling %s", i.Key())
	}
	var installables []intent.Intent
	for _, sub := range compiled {
		if intent.Installable(sub) {
			installables = append(installables, sub)
			continue
		}
		nested, err := r.compileDepth(sub, previous, depth+1)
		if err != nil {
			return nil, errors.Trace(err)
		}
		installables = append(installables, nested...)
	}
	return installables, nil
}

// Installer applies or removes installables of one type on the
// network. Implementations must report the operation's outcome to the
// coordinator exactly once, via Success or Failed on the context.
type Installer interface {
	Apply(*OperationContext)
}

// installerRegistry dispatches installation on the installable type
// hierarchy.
type installerRegistry struct {
	mu         sync.RWMutex
	installers map[string]Installer
}

func newInstallerRegistry() *installerRegistry {
	return &installerRegistry{installers: make(map[string]Installer)}
}

func (r *installerRegistry) register(t *intent.Type, i Installer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installers[t.Name] = i
}

func (r *installerRegistry) unregister(t *intent.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.installers, t.Name)
}

func (r *installerRegistry) lookup(t *intent.Type) (Installer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ; t != nil; t = t.Parent {
		if i, ok := r.installers[t.Name]; ok {
			return i, nil
		}
	}
	return nil, errors.Trace(ErrNoInstaller)
}
