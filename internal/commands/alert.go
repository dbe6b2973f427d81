package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"firetodo/internal/exitcode"
	"firetodo/internal/output"
	"firetodo/internal/screens"
)

// settleTimeout bounds how long a write waits for the live list to show it.
const settleTimeout = 3 * time.Second

// alert prints err under title and returns its exit code.
// Validation failures use validationTitle instead.
func alert(errOut io.Writer, validationTitle, title string, err error) int {
	if screens.IsValidation(err) {
		title = validationTitle
	}
	output.FormatError(errOut, title, err)
	return exitcode.For(err)
}

// notice prints an informational message unless quiet.
func notice(env *Env, out io.Writer, msg string) {
	if !env.quiet() {
		fmt.Fprintln(out, msg)
	}
}

// awaitUpdate waits until updated is closed, the timeout passes or ctx ends.
func awaitUpdate(ctx context.Context, updated <-chan struct{}) {
	timer := time.NewTimer(settleTimeout)
	defer timer.Stop()
	select {
	case <-updated:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// credentials reads the email from args or a prompt, then the password.
func credentials(env *Env, args []string) (email, password string, err error) {
	if len(args) > 0 {
		email = args[0]
	} else if env.Prompt != nil {
		if email, err = env.Prompt.Prompt("Email: "); err != nil {
			return "", "", err
		}
	}
	if env.Prompt != nil {
		if password, err = env.Prompt.PromptSecret("Password: "); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}
