// Package flagx lets independent loaders parse only the flags they own.
//
// Several config layers read os.Args (the JSON layer looks for -c/-config,
// the flag layer for its own short options). A standard flag.FlagSet fails
// on unknown flags, so each layer first narrows the argument list with
// FilterArgs.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName strips one or two leading dashes.
func flagName(arg string) string {
	return strings.TrimLeft(arg, "-")
}

// FilterArgs keeps only the flags listed in allowed together with their
// values. Names in allowed may be written with or without dashes; "-c" and
// "--c" select the same flag.
//
// Both "-c value" and "-c=value" forms are recognized. A token that starts
// with a dash is never consumed as a value.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		names[flagName(a)] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(flagName(arg), "=")
		if _, ok := names[name]; !ok {
			continue
		}

		out = append(out, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the JSON config path given with -c or -config, or an
// empty string. When both are present the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return path
}
