package commands

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
	"firetodo/internal/output"
	"firetodo/internal/screens"
)

func init() {
	Register(&ProfileCmd{})
	Register(&NameCmd{})
	Register(&PictureCmd{})
}

// ProfileCmd implements the profile command.
type ProfileCmd struct{}

func (c *ProfileCmd) Name() string       { return "profile" }
func (c *ProfileCmd) Aliases() []string  { return []string{"me"} }
func (c *ProfileCmd) Synopsis() string   { return "Show your profile" }
func (c *ProfileCmd) Usage() string      { return "profile" }
func (c *ProfileCmd) Screen() nav.Screen { return nav.ScreenProfile }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProfileCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	code := exitcode.Success
	if env.Profile.View().State != screens.ProfileReady {
		next, err := env.Profile.Mount(ctx)
		if err != nil {
			code = alert(errOut, "Error", "Error", err)
		}
		if next != nav.ScreenProfile {
			if err := env.navigate(ctx, next); err != nil {
				return alert(errOut, "Error", "Error", err)
			}
			return code
		}
	}

	if !env.quiet() {
		output.FormatHeader(out, nav.ScreenProfile.Title())
	}
	output.FormatProfile(out, env.Profile.View())
	return code
}

// NameCmd implements the name command.
type NameCmd struct{}

func (c *NameCmd) Name() string       { return "name" }
func (c *NameCmd) Aliases() []string  { return []string{"username"} }
func (c *NameCmd) Synopsis() string   { return "Set your display name" }
func (c *NameCmd) Usage() string      { return "name <text...>" }
func (c *NameCmd) Screen() nav.Screen { return nav.ScreenProfile }

func (c *NameCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *NameCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if err := env.Profile.UpdateDisplayName(ctx, strings.Join(args, " ")); err != nil {
		return alert(errOut, "Validation Error", "Update Error", err)
	}
	notice(env, out, "Username updated!")
	return exitcode.Success
}

// PictureCmd implements the picture command.
type PictureCmd struct{}

func (c *PictureCmd) Name() string       { return "picture" }
func (c *PictureCmd) Aliases() []string  { return []string{"avatar"} }
func (c *PictureCmd) Synopsis() string   { return "Upload a profile picture" }
func (c *PictureCmd) Usage() string      { return "picture [path]" }
func (c *PictureCmd) Screen() nav.Screen { return nav.ScreenProfile }

func (c *PictureCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PictureCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 && env.Picker != nil {
		env.Picker.Preset(strings.Join(args, " "))
	}

	before := env.Profile.View().PictureURL
	if err := env.Profile.PickAndUpload(ctx); err != nil {
		if errors.Is(err, screens.ErrPermissionDenied) {
			return alert(errOut, "Permission Denied", "Permission Denied", err)
		}
		return alert(errOut, "Upload Error", "Upload Error", err)
	}

	if env.Profile.View().PictureURL == before {
		notice(env, out, "cancelled")
		return exitcode.Success
	}
	notice(env, out, "Profile picture uploaded!")
	return exitcode.Success
}
