package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// addFormatFlag registers a --<name> string flag whose first allowed value
// is the default. Values are checked by checkFormat when the command runs.
func addFormatFlag(fs *pflag.FlagSet, target *string, name string, allowed ...string) {
	fs.StringVar(target, name, allowed[0], "one of: "+strings.Join(allowed, ", "))
}

func checkFormat(name, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("unsupported %s: %s (supported: %s)", name, value, strings.Join(allowed, ", "))
}
