package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetodo/internal/nav"
)

func names(cmds []Command) []string {
	var result []string
	for _, c := range cmds {
		result = append(result, c.Name())
	}
	return result
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&ListCmd{}))
	assert.EqualError(t, r.Register(&ListCmd{}), "command already registered: list")
	assert.EqualError(t, r.Register(&aliasClash{}), "command alias already registered: ls")
}

type aliasClash struct{ VersionCmd }

func (c *aliasClash) Name() string      { return "other" }
func (c *aliasClash) Aliases() []string { return []string{"ls"} }

func TestRegistry_FindByAlias(t *testing.T) {
	cmd, ok := DefaultRegistry.Find("done")
	require.True(t, ok)
	assert.Equal(t, "toggle", cmd.Name())

	_, ok = DefaultRegistry.Find("lists")
	assert.False(t, ok)
}

func TestRegistry_Available(t *testing.T) {
	assert.Equal(t,
		[]string{"help", "login", "quit", "signup", "version"},
		names(DefaultRegistry.Available(nav.RouteUnauthenticated)))
	assert.Equal(t,
		[]string{"add", "help", "list", "logout", "name", "picture", "profile", "quit", "rm", "toggle", "version"},
		names(DefaultRegistry.Available(nav.RouteAuthenticated)))
	assert.Equal(t,
		[]string{"help", "quit", "version"},
		names(DefaultRegistry.Available(nav.RouteLoading)))
}
