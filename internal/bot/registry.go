package bot

import (
	"fmt"
	"sort"
	"strings"
)

// factories builds a fresh plugin by name.
var factories = map[string]func() Plugin{ //nolint:gochecknoglobals
	"access":       func() Plugin { return &Access{} },
	"autojoin":     func() Plugin { return &AutoJoin{} },
	"autoresponse": func() Plugin { return &AutoResponse{} },
	"echo":         func() Plugin { return &Echo{} },
	"greeter":      func() Plugin { return &Greeter{} },
	"help":         func() Plugin { return &HelpPlugin{} },
	"operator":     func() Plugin { return &Operator{} },
	"uptime":       func() Plugin { return &Uptime{} },
}

// Available returns the names accepted by Lookup, sorted.
func Available() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns new plugins for names, in order.
func Lookup(names ...string) ([]Plugin, error) {
	plugins := make([]Plugin, 0, len(names))
	for _, n := range names {
		f, ok := factories[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q (available: %s)", n, strings.Join(Available(), ", "))
		}
		plugins = append(plugins, f())
	}
	return plugins, nil
}
