// Package cli runs the interactive front end: global flags, backend
// set-up and the command loop with screen navigation.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/logger"
	"firetodo/internal/nav"
	"firetodo/internal/output"
	"firetodo/internal/picker"
	"firetodo/internal/prompt"
	"firetodo/internal/screens"
	"firetodo/internal/service"
	"firetodo/internal/session"
)

const loadTimeout = 3 * time.Second

// BackendFactory creates the backend services from config.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error)

// Dispatcher handles flag parsing and the command loop.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses global flags, connects to the backend and reads commands from
// in until EOF, quit or ctx is done. Returns the exit code of the last
// command, or of the failed start-up step.
func (d *Dispatcher) Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("firetodo", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var configDir, backend string
	var quiet, debug bool
	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&backend, "backend", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	if err := fs.Parse(args); err != nil {
		reportFlagError(errOut, err)
		return exitcode.UserError
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", fs.Arg(0))
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	cfg.Backend = backend
	if err := cfg.Load(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}

	log := logger.Setup(errOut, logger.Level(debug, quiet))
	log.Debug("starting", "backend", cfg.Backend, "config", cfg.Dir)

	svc, err := d.factory(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
	if svc.Close != nil {
		defer func() {
			if err := svc.Close(); err != nil {
				log.Warn("backend close failed", slog.Any("error", err))
			}
		}()
	}

	term := prompt.NewTerminal(in, out)
	a := newApp(cfg, svc, term, d.registry, log, out, errOut)
	defer a.stop()

	if err := a.start(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.BackendError
	}
	return a.loop(ctx, term)
}

// reportFlagError prints a flag parse error in the form used for all errors.
func reportFlagError(errOut io.Writer, err error) {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
		return
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
}

// app is one running session of the front end: the screens, the current
// screen and the navigation rules between them.
type app struct {
	env      *commands.Env
	registry *commands.Registry
	log      *slog.Logger
	out      io.Writer
	errOut   io.Writer

	route   nav.Route
	current nav.Screen
}

func newApp(cfg *config.Config, svc service.Backend, term *prompt.Terminal, registry *commands.Registry, log *slog.Logger, out, errOut io.Writer) *app {
	observer := session.NewObserver(svc.Auth, log)
	pk := picker.New(term)
	a := &app{
		registry: registry,
		log:      log,
		out:      out,
		errOut:   errOut,
		route:    nav.RouteLoading,
		current:  nav.ScreenNone,
	}
	a.env = &commands.Env{
		Config:   cfg,
		Session:  observer,
		Signup:   screens.NewSignup(svc.Auth, log),
		Login:    screens.NewLogin(svc.Auth, observer, log),
		Tasks:    screens.NewTaskList(svc.Tasks, log),
		Profile:  screens.NewProfile(svc.Auth, svc.Blobs, pk, observer, log),
		Prompt:   term,
		Picker:   pk,
		Registry: registry,
		Navigate: a.navigate,
	}
	return a
}

// start observes the session and shows the first screen once it resolves.
func (a *app) start(ctx context.Context) error {
	a.env.Session.Start()
	if err := a.env.Session.WaitReady(ctx); err != nil {
		return err
	}
	a.reconcile(ctx)
	return nil
}

func (a *app) stop() {
	a.env.Tasks.Unmount()
	a.env.Profile.Unmount()
	a.env.Session.Stop()
}

func (a *app) loop(ctx context.Context, term *prompt.Terminal) int {
	code := exitcode.Success
	for ctx.Err() == nil && !a.env.Quitting() {
		a.showPrompt()
		line, err := term.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(a.errOut, "error: %s\n", err)
				return exitcode.UserError
			}
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		code = a.exec(ctx, fields[0], fields[1:])
		a.reconcile(ctx)
	}
	if !a.env.Config.Quiet {
		fmt.Fprintln(a.out)
	}
	return code
}

func (a *app) showPrompt() {
	if a.env.Config.Quiet {
		return
	}
	title := a.current.Title()
	if title == "" {
		fmt.Fprint(a.out, "firetodo> ")
		return
	}
	fmt.Fprintf(a.out, "firetodo [%s]> ", title)
}

// exec runs one command line.
func (a *app) exec(ctx context.Context, name string, args []string) int {
	cmd, ok := a.registry.Find(name)
	if !ok {
		fmt.Fprintf(a.errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	route := a.env.Route()
	if !nav.Allows(route, cmd.Screen()) {
		fmt.Fprintf(a.errOut, "error: %s is not available while %s\n", cmd.Name(), describe(route))
		return exitcode.UserError
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		reportFlagError(a.errOut, err)
		return exitcode.UserError
	}

	// Commands act on their own screen; switch to it first.
	if s := cmd.Screen(); s != nav.ScreenNone && s != a.current {
		if err := a.navigate(ctx, s); err != nil {
			output.FormatError(a.errOut, "Error", err)
			return exitcode.For(err)
		}
		if a.current != s {
			// Redirected, e.g. to login after the session ended.
			return exitcode.UserError
		}
	}

	a.log.Debug("run command", "command", cmd.Name(), "screen", a.current.Title())
	return cmd.Run(ctx, a.env, fs.Args(), a.out, a.errOut)
}

// awaitTasks gives the first snapshot a moment so the list is not shown
// empty right after sign-in.
func (a *app) awaitTasks(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := a.env.Tasks.WaitLoaded(ctx); err != nil {
		a.log.Debug("task list not loaded yet", slog.Any("error", err))
	}
}

func describe(route nav.Route) string {
	switch route {
	case nav.RouteAuthenticated:
		return "signed in"
	case nav.RouteUnauthenticated:
		return "signed out"
	default:
		return "starting"
	}
}

// navigate moves to screen to, mounting it as needed. Login short-circuits
// to the task list when a session is active; profile redirects to login
// when it is not.
func (a *app) navigate(ctx context.Context, to nav.Screen) error {
	switch to {
	case nav.ScreenLogin:
		next, skip, err := a.env.Login.Mount(ctx)
		if err != nil {
			return err
		}
		if skip {
			to = next
		}
	case nav.ScreenProfile:
		if a.env.Profile.View().State != screens.ProfileReady {
			next, err := a.env.Profile.Mount(ctx)
			if err != nil {
				output.FormatError(a.errOut, "Error", err)
			}
			to = next
		}
	}

	if !nav.Allows(a.env.Route(), to) {
		a.reconcile(ctx)
		return nil
	}
	a.current = to
	a.reconcile(ctx)
	return nil
}

// reconcile follows session changes: entering the authenticated route
// mounts the task list, leaving it unmounts both tabs.
func (a *app) reconcile(ctx context.Context) {
	route := a.env.Route()
	if route == a.route && nav.Allows(route, a.current) {
		return
	}
	prev := a.route
	a.route = route
	a.log.Debug("route changed", "from", prev, "to", route)

	switch route {
	case nav.RouteAuthenticated:
		if user, ok := a.env.Session.User(); ok {
			if err := a.env.Tasks.Mount(ctx, user); err != nil {
				output.FormatError(a.errOut, "Error", err)
			} else {
				a.awaitTasks(ctx)
			}
		}
		if !nav.Allows(route, a.current) || a.current == nav.ScreenNone {
			a.current = nav.ScreenTasks
		}
	case nav.RouteUnauthenticated:
		a.env.Tasks.Unmount()
		a.env.Profile.Unmount()
		if !nav.Allows(route, a.current) || a.current == nav.ScreenNone {
			// First start shows signup; leaving a session shows login.
			a.current = nav.ScreenSignup
			if prev == nav.RouteAuthenticated {
				a.current = nav.ScreenLogin
			}
		}
	default:
		a.current = nav.ScreenNone
	}
}
