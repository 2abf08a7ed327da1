package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	app := newApp()
	require.NotNil(t, app)
	assert.Equal(t, "prefaudit", app.Name)
	assert.NotNil(t, app.Before)
	assert.NotNil(t, app.After)

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{
		"auth", "import", "analyze", "query", "server", "reset", "vacuum",
	}, names)
}
