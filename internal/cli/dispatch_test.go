package cli_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetodo/internal/cli"
	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/service"
	"firetodo/internal/testutil"
)

// testFactory returns a backend factory serving fake and counting Close calls.
func testFactory(fake *testutil.FakeBackend, closed *int) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error) {
		b := fake.Services()
		b.Close = func() error {
			if closed != nil {
				*closed++
			}
			return nil
		}
		return b, nil
	}
}

type session struct {
	code   int
	stdout string
	stderr string
}

// runScript runs the REPL over script with the memory backend selected.
func runScript(t *testing.T, fake *testutil.FakeBackend, script string, flags ...string) session {
	t.Helper()
	args := append([]string{"--config", t.TempDir(), "--backend", "memory"}, flags...)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake, nil))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), args, strings.NewReader(script), &stdout, &stderr)
	return session{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestDispatcher_UnexpectedArgument(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend(), nil))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"list"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unexpected argument: list\n", stderr.String())
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend(), nil))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--bogus"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unknown flag: -bogus\n", stderr.String())
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend(), nil))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--backend"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: flag needs an argument: -backend\n", stderr.String())
}

func TestDispatcher_ConfigError(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error) {
		called = true
		return service.Backend{}, nil
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var stdout, stderr bytes.Buffer
	args := []string{"--config", t.TempDir(), "--backend", "bogus"}
	code := dispatcher.Run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.AuthError, code)
	assert.Equal(t, "error: unknown backend: bogus\n", stderr.String())
	assert.False(t, called)
}

func TestDispatcher_BackendError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error) {
		return service.Backend{}, errors.New("connection refused")
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var stdout, stderr bytes.Buffer
	args := []string{"--config", t.TempDir(), "--backend", "memory"}
	code := dispatcher.Run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.BackendError, code)
	assert.Equal(t, "error: backend error: connection refused\n", stderr.String())
}

func TestDispatcher_EmptyInputClosesBackend(t *testing.T) {
	closed := 0
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend(), &closed))

	var stdout, stderr bytes.Buffer
	args := []string{"--config", t.TempDir(), "--backend", "memory"}
	code := dispatcher.Run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr.String())
	assert.Equal(t, 1, closed)
}

func TestDispatcher_PromptShowsSignupFirst(t *testing.T) {
	s := runScript(t, testutil.NewFakeBackend(), "\n")

	assert.Equal(t, exitcode.Success, s.code)
	assert.True(t, strings.HasPrefix(s.stdout, "firetodo [Sign Up]> "), s.stdout)
}

func TestDispatcher_SignupAddAndList(t *testing.T) {
	fake := testutil.NewFakeBackend()
	script := strings.Join([]string{
		"signup a@x.io",
		"secret1",
		"add Buy milk",
		"list",
		"quit",
		"this line is never read",
	}, "\n") + "\n"

	s := runScript(t, fake, script, "--quiet")

	assert.Equal(t, exitcode.Success, s.code)
	assert.Empty(t, s.stderr)
	assert.Contains(t, s.stdout, "   1  [ ] Buy milk\n")
	assert.Equal(t, 1, fake.Calls("CreateAccount"))
	assert.Equal(t, 1, fake.Calls("Create"))
}

func TestDispatcher_SignedInStartListsTasks(t *testing.T) {
	fake := testutil.NewFakeBackend()
	user := fake.MustSignUp("a@x.io", "secret1")
	fake.AddTask(user.ID, "Existing")

	s := runScript(t, fake, "list\n", "--quiet")

	assert.Equal(t, exitcode.Success, s.code)
	assert.Equal(t, "   1  [ ] Existing\n", s.stdout)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	s := runScript(t, testutil.NewFakeBackend(), "bogus\n", "--quiet")

	assert.Equal(t, exitcode.UserError, s.code)
	assert.Equal(t, "error: unknown command: bogus\n", s.stderr)
}

func TestDispatcher_CommandNotAvailableSignedOut(t *testing.T) {
	fake := testutil.NewFakeBackend()
	s := runScript(t, fake, "add Buy milk\n", "--quiet")

	assert.Equal(t, exitcode.UserError, s.code)
	assert.Equal(t, "error: add is not available while signed out\n", s.stderr)
	assert.Zero(t, fake.Calls("Create"))
}

func TestDispatcher_CommandNotAvailableSignedIn(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.MustSignUp("a@x.io", "secret1")

	s := runScript(t, fake, "login\n", "--quiet")

	assert.Equal(t, exitcode.UserError, s.code)
	assert.Equal(t, "error: login is not available while signed in\n", s.stderr)
}

func TestDispatcher_CommandFlagError(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.MustSignUp("a@x.io", "secret1")

	s := runScript(t, fake, "list --bogus\n", "--quiet")

	assert.Equal(t, exitcode.UserError, s.code)
	assert.Equal(t, "error: unknown flag: -bogus\n", s.stderr)
}

func TestDispatcher_LogoutShowsLogin(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.MustSignUp("a@x.io", "secret1")

	s := runScript(t, fake, "logout\n")

	require.Equal(t, exitcode.Success, s.code, s.stderr)
	assert.Contains(t, s.stdout, "firetodo [To-Do]> ")
	assert.Contains(t, s.stdout, "firetodo [Login]> ")
	_, signedIn := fake.CurrentUser()
	assert.False(t, signedIn)
}

func TestDispatcher_LoginAfterLogout(t *testing.T) {
	fake := testutil.NewFakeBackend()
	user := fake.MustSignUp("a@x.io", "secret1")
	fake.AddTask(user.ID, "Existing")
	script := strings.Join([]string{
		"logout",
		"login a@x.io",
		"secret1",
		"list",
	}, "\n") + "\n"

	s := runScript(t, fake, script, "--quiet")

	require.Equal(t, exitcode.Success, s.code, s.stderr)
	assert.Contains(t, s.stdout, "   1  [ ] Existing\n")
	assert.Equal(t, 1, fake.Calls("SignIn"))
}

func TestDispatcher_ProfileTab(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.MustSignUp("a@x.io", "secret1")

	s := runScript(t, fake, "name Ann\nprofile\n", "--quiet")

	require.Equal(t, exitcode.Success, s.code, s.stderr)
	assert.Contains(t, s.stdout, "a@x.io")
	assert.Contains(t, s.stdout, "Ann")
	assert.Equal(t, 1, fake.Calls("RetrievalURL"))
}

func TestDispatcher_ProfileLookupErrorIsShown(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.MustSignUp("a@x.io", "secret1")
	fake.RetrievalURLErr = service.ErrUnavailable

	s := runScript(t, fake, "profile\n", "--quiet")

	assert.Equal(t, exitcode.Success, s.code)
	assert.Contains(t, s.stderr, "error: Error: load profile picture: ")
	assert.Contains(t, s.stdout, "a@x.io")
}
