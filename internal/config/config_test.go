package config

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCLI struct {
	DB        string `name:"db" default:"default.db"`
	Debug     bool
	LogFormat string `default:"text"`

	History struct {
		Limit int `default:"200"`
	} `cmd:""`
	Vote struct {
		List struct {
			Limit int `default:"200"`
		} `cmd:""`
	} `cmd:""`
}

func parse(t *testing.T, yamlText string, args ...string) testCLI {
	t.Helper()

	resolver, err := YAML(strings.NewReader(yamlText))
	require.NoError(t, err)

	var cli testCLI
	parser, err := kong.New(&cli, kong.Resolvers(resolver))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return cli
}

func TestYAMLRootFlags(t *testing.T) {
	cli := parse(t, "db: /tmp/from-yaml.db\ndebug: true\nlog_format: json\n", "history")

	assert.Equal(t, "/tmp/from-yaml.db", cli.DB)
	assert.True(t, cli.Debug)
	assert.Equal(t, "json", cli.LogFormat)
}

func TestYAMLCommandScope(t *testing.T) {
	cli := parse(t, "history:\n  limit: 50\nvote:\n  list:\n    limit: 7\n", "history")
	assert.Equal(t, 50, cli.History.Limit)

	cli = parse(t, "history:\n  limit: 50\nvote:\n  list:\n    limit: 7\n", "vote", "list")
	assert.Equal(t, 7, cli.Vote.List.Limit)
}

func TestFlagsOverrideYAML(t *testing.T) {
	cli := parse(t, "db: /tmp/from-yaml.db\nhistory:\n  limit: 50\n", "--db", "/tmp/flag.db", "history", "--limit", "3")

	assert.Equal(t, "/tmp/flag.db", cli.DB)
	assert.Equal(t, 3, cli.History.Limit)
}

func TestEmptyConfigKeepsDefaults(t *testing.T) {
	cli := parse(t, "", "history")

	assert.Equal(t, "default.db", cli.DB)
	assert.Equal(t, 200, cli.History.Limit)
}

func TestInvalidYAML(t *testing.T) {
	_, err := YAML(strings.NewReader("db: [unterminated"))
	assert.Error(t, err)
}
