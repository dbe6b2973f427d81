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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete tasks" }
func (c *RmCmd) Usage() string      { return "rm <ref...>" }
func (c *RmCmd) Screen() nav.Screen { return nav.ScreenTasks }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Parse task references
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// Resolve all refs before deleting so positions don't shift
	tasks, err := env.resolve(refs)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	for _, task := range tasks {
		updated := env.Tasks.Updated()
		if err := env.Tasks.Delete(ctx, task.ID); err != nil {
			return alert(errOut, "Delete Error", "Delete Error", err)
		}
		awaitUpdate(ctx, updated)
	}

	notice(env, out, "ok")
	return exitcode.Success
}
