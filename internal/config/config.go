// Package config resolves kong flags from an optional YAML file.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong.ConfigurationLoader. Keys match long flag names, either
// verbatim or with dashes as underscores. A nested mapping keyed by command
// name scopes a value to that command:
//
//	db: ~/data/identityforge.db
//	debug: true
//	history:
//	  limit: 50
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		scope := values
		if parent != nil && parent.Command != nil {
			for _, name := range commandPath(parent.Command) {
				nested, ok := scope[name].(map[string]any)
				if !ok {
					scope = nil
					break
				}
				scope = nested
			}
		}

		if v, ok := lookup(scope, flag.Name); ok {
			return v, nil
		}
		if v, ok := lookup(values, flag.Name); ok {
			if _, isMap := v.(map[string]any); !isMap {
				return v, nil
			}
		}
		return nil, nil
	}
	return f, nil
}

func lookup(values map[string]any, name string) (any, bool) {
	if values == nil {
		return nil, false
	}
	if v, ok := values[name]; ok {
		return v, true
	}
	v, ok := values[strings.ReplaceAll(name, "-", "_")]
	return v, ok
}

// commandPath returns the command names from the root's first child down to n.
func commandPath(n *kong.Node) []string {
	var names []string
	for ; n != nil && n.Type == kong.CommandNode; n = n.Parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}
