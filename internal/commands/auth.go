package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
)

func init() {
	Register(&SignupCmd{})
	Register(&LoginCmd{})
	Register(&LogoutCmd{})
}

// SignupCmd implements the signup command.
type SignupCmd struct{}

func (c *SignupCmd) Name() string       { return "signup" }
func (c *SignupCmd) Aliases() []string  { return []string{"register"} }
func (c *SignupCmd) Synopsis() string   { return "Create an account" }
func (c *SignupCmd) Usage() string      { return "signup [email]" }
func (c *SignupCmd) Screen() nav.Screen { return nav.ScreenSignup }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SignupCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintln(errOut, "error: too many arguments")
		return exitcode.UserError
	}
	email, password, err := credentials(env, args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	next, err := env.Signup.Submit(ctx, email, password)
	if err != nil {
		return alert(errOut, "Error", "Signup Error", err)
	}
	notice(env, out, "Account created successfully!")

	if err := env.navigate(ctx, next); err != nil {
		return alert(errOut, "Error", "Error", err)
	}
	return exitcode.Success
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in" }
func (c *LoginCmd) Usage() string      { return "login [email]" }
func (c *LoginCmd) Screen() nav.Screen { return nav.ScreenLogin }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintln(errOut, "error: too many arguments")
		return exitcode.UserError
	}
	email, password, err := credentials(env, args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	next, err := env.Login.Submit(ctx, email, password)
	if err != nil {
		return alert(errOut, "Error", "Login Error", err)
	}
	notice(env, out, "Logged in successfully!")

	if err := env.navigate(ctx, next); err != nil {
		return alert(errOut, "Error", "Error", err)
	}
	return exitcode.Success
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Sign out" }
func (c *LogoutCmd) Usage() string      { return "logout" }
func (c *LogoutCmd) Screen() nav.Screen { return nav.ScreenProfile }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	next, err := env.Profile.Logout(ctx)
	if err != nil {
		return alert(errOut, "Logout Error", "Logout Error", err)
	}
	notice(env, out, "ok")

	if err := env.navigate(ctx, next); err != nil {
		return alert(errOut, "Error", "Error", err)
	}
	return exitcode.Success
}
