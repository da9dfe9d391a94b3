package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	require.Equal(t, "Welcome to chess!", c.Text("welcome.title", nil))

	out, err := c.Render("colour.chosen", map[string]string{"Human": "Alice", "Colour": "White", "Opponent": "Black"})
	require.NoError(t, err)
	require.Equal(t, "Alice plays White; the computer plays Black.", out)
}

func TestRenderMissingKeyAndData(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	_, err = c.Render("does.not.exist", nil)
	require.Error(t, err)
	require.Equal(t, "does.not.exist", c.Text("does.not.exist", nil))

	_, err = c.Render("colour.chosen", map[string]string{"Human": "Alice"})
	require.Error(t, err)
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.fr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("welcome:\n  title: \"Bienvenue\"\n"), 0o644))
	c, err := New(path)
	require.NoError(t, err)
	require.Equal(t, "Bienvenue", c.Text("welcome.title", nil))
	require.Equal(t, "No saved games.", c.Text("loader.empty", nil))
}

func TestOverrideFileRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown key":  "welcome:\n  titel: \"Hi\"\n",
		"non-text":     "welcome:\n  title: 3\n",
		"bad template": "welcome:\n  title: \"{{.Name\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := New(path)
			require.Error(t, err)
		})
	}

	_, err := New(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
