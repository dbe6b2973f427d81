// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"firetodo/internal/config"
	"firetodo/internal/nav"
	"firetodo/internal/prompt"
	"firetodo/internal/screens"
	"firetodo/internal/session"
)

// Command defines the interface for REPL commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Screen returns the screen the command acts on. The command is only
	// available while that screen is reachable; ScreenNone means always.
	Screen() nav.Screen

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// PathPresetter lets a command supply the picker's next path.
type PathPresetter interface {
	Preset(path string)
}

// Env is the running app a command operates on.
type Env struct {
	Config  *config.Config
	Session *session.Observer

	Signup  *screens.Signup
	Login   *screens.Login
	Tasks   *screens.TaskList
	Profile *screens.Profile

	Prompt prompt.Prompter
	Picker PathPresetter

	// Registry lists commands for help. Defaults to DefaultRegistry.
	Registry *Registry

	// Navigate moves the app to a screen. May be nil.
	Navigate func(ctx context.Context, to nav.Screen) error

	shown shownList
	quit  bool
}

// Route returns the navigation route for the current session.
func (e *Env) Route() nav.Route {
	return nav.Resolve(e.Session.State())
}

// Quit asks the REPL to stop after the current command.
func (e *Env) Quit() {
	e.quit = true
}

// Quitting reports whether Quit was called.
func (e *Env) Quitting() bool {
	return e.quit
}

func (e *Env) quiet() bool {
	return e.Config != nil && e.Config.Quiet
}

func (e *Env) registry() *Registry {
	if e.Registry != nil {
		return e.Registry
	}
	return DefaultRegistry
}

func (e *Env) navigate(ctx context.Context, to nav.Screen) error {
	if e.Navigate == nil {
		return nil
	}
	return e.Navigate(ctx, to)
}
