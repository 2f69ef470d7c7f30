package countries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwahada/WorldMapQuiz/internal/judge"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 150)

	ca, ok := c.Get("ca")
	require.True(t, ok)
	assert.Equal(t, "Canada", ca.Name)

	// Every built-in name must be answerable.
	for _, country := range c.All() {
		assert.NotEmpty(t, judge.Normalize(country.Name), country.ID)
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(`[{"id":" fr ","name":"France"},{"id":"PE","name":"Peru"}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	fr, ok := c.Get("FR")
	require.True(t, ok)
	assert.Equal(t, "France", fr.Name)

	all := c.All()
	all[0].Name = "changed"
	assert.Equal(t, "France", c.All()[0].Name, "All returns a copy")
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"empty":        `[]`,
		"missing name": `[{"id":"FR"}]`,
		"duplicate":    `[{"id":"FR","name":"France"},{"id":"fr","name":"France"}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"MG","name":"Madagascar"}]`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c, err = LoadFile("")
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
