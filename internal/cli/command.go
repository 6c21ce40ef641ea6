package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// usageError marks an error that should exit 2 (bad flags or missing
// arguments) rather than 1 (a Precondition/IO/Postcondition failure from
// deeper in the pipeline).
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// UsageErrorf builds an error that exits the process with code 2.
func UsageErrorf(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Command defines a CLI command with unified help generation and flag
// parsing. Command identity comes from the first word of Usage.
type Command struct {
	// Flags holds the command's own flags. The FlagSet's own name is
	// unused; identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "looplift", e.g.
	// "scan <file> <device>" or "lift [flags] <device>".
	Usage string

	// Short is a one-line description shown in the top-level command list.
	Short string

	// Exec runs the command once flags have been parsed; args holds the
	// positional arguments left after flag parsing.
	Exec func(ctx context.Context, stdin io.Reader, out, errOut io.Writer, args []string) error
}

// Name returns the command name, the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the command's line in the top-level help listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints the command's own usage and flag defaults to out.
func (c *Command) PrintHelp(out io.Writer) {
	fmt.Fprintf(out, "Usage: looplift %s\n\n%s\n", c.Usage, c.Short)
	if c.Flags != nil && c.Flags.HasFlags() {
		fmt.Fprint(out, "\nFlags:\n")
		c.Flags.SetOutput(out)
		c.Flags.PrintDefaults()
	}
}

// Run parses args against the command's flags and executes it. Returns
// the process exit code: 0 success, 2 usage error, 1 any other failure.
func (c *Command) Run(ctx context.Context, stdin io.Reader, out, errOut io.Writer, args []string) int {
	var discard strings.Builder
	c.Flags.SetOutput(&discard)

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(out)
			return 0
		}
		fmt.Fprintln(errOut, "error:", err)
		c.PrintHelp(errOut)
		return 2
	}

	if err := c.Exec(ctx, stdin, out, errOut, c.Flags.Args()); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		var ue *usageError
		if errors.As(err, &ue) {
			c.PrintHelp(errOut)
			return 2
		}
		return 1
	}
	return 0
}
