// Command looplift rearranges a file's bytes in place onto the block
// device it sits on, letting the underlying storage be freed without a
// full-length copy pass. See "looplift" with no arguments for usage.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gaby/looplift/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh))
}
