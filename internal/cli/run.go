// Package cli is the command-table dispatcher for the looplift binary: a
// small set of subcommands (scan and lift), each an independent
// Command with its own pflag.FlagSet, looked up by name and run against a
// shared context that is cancelled on SIGINT/SIGTERM.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Run is the binary's entry point. sigCh may be nil, in which case
// commands run to completion with no graceful-shutdown window (used by
// tests).
func Run(stdin io.Reader, out, errOut io.Writer, args []string, sigCh <-chan os.Signal) int {
	commands := allCommands()

	if len(args) < 2 {
		printUsage(out, commands)
		return 0
	}

	name := args[1]
	if name == "-h" || name == "--help" {
		printUsage(out, commands)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, commands)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)
	go func() { done <- cmd.Run(ctx, stdin, out, errOut, args[2:]) }()

	select {
	case code := <-done:
		return code
	case <-sigCh:
		fmt.Fprintln(errOut, "shutting down, waiting up to 5s for the in-flight operation to reach a safe stopping point...")
		cancel()
	}

	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		fmt.Fprintln(errOut, "shutdown timed out, forced exit (130)")
		return 130
	}
}

func allCommands() map[string]*Command {
	cmds := []*Command{
		newScanCommand(),
		newLiftCommand(),
	}
	byName := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		byName[c.Name()] = c
	}
	return byName
}

func printUsage(out io.Writer, commands map[string]*Command) {
	fmt.Fprintln(out, "looplift rearranges a file's bytes in place onto the block device it sits on, freeing the file's inode without a copy pass.")
	fmt.Fprintln(out, "\nUsage: looplift <command> [flags] [args]")
	fmt.Fprintln(out, "\nCommands:")
	for _, name := range []string{"scan", "lift"} {
		if c, ok := commands[name]; ok {
			fmt.Fprintln(out, c.HelpLine())
		}
	}
}
