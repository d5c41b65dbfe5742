// Package flagx lets several configuration layers share os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags together with their
// values. Both "-f value" and "-f=value" forms are recognised; a token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, found := strings.Cut(arg, "="); found {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// lookupString parses a single string flag (under a short and a long name)
// out of args, ignoring everything else. The last occurrence wins.
func lookupString(args []string, short, long string) string {
	var value string

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", "")
	names := []string{"-" + long}
	if short != long {
		fs.StringVar(&value, short, "", "")
		names = append(names, "-"+short)
	}
	_ = fs.Parse(FilterArgs(args, names))

	return value
}

// JSONConfigFile returns the path given with -c or -config, or "".
func JSONConfigFile(args []string) string {
	return lookupString(args, "c", "config")
}

// EnvFile returns the path given with -env-file, or "".
func EnvFile(args []string) string {
	return lookupString(args, "env-file", "env-file")
}
