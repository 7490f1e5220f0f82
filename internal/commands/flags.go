package commands

import (
	"flag"
	"io"
	"strings"

	"tarevity/internal/exitcode"
)

// ParseFlags parses args into fs and returns the positional arguments.
// Parse errors are reported on errOut; ok is false and code holds the exit
// code when parsing failed.
func ParseFlags(fs *flag.FlagSet, args []string, errOut io.Writer) (rest []string, code int, ok bool) {
	fs.SetOutput(io.Discard) // We handle errors ourselves

	if err := fs.Parse(args); err != nil {
		errStr := err.Error()

		// Missing flag value
		if strings.Contains(errStr, "flag needs an argument") {
			name := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			return nil, usageError(errOut, "flag needs an argument: %s", name), false
		}

		// Unknown flag
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			name := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			return nil, usageError(errOut, "unknown flag: %s", name), false
		}

		return nil, usageError(errOut, "%s", errStr), false
	}

	// A leading "-" left over should have been a flag
	rest = fs.Args()
	if len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		return nil, usageError(errOut, "unknown flag: %s", rest[0]), false
	}
	return rest, exitcode.Success, true
}

// optString is a string flag that records whether it was given.
type optString struct {
	set   bool
	value string
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.set = true
	o.value = s
	return nil
}
