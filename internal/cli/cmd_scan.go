package cli

import (
	"context"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/gaby/looplift/internal/config"
	"github.com/gaby/looplift/internal/extentmap"
	"github.com/gaby/looplift/internal/runlog"
	"github.com/gaby/looplift/internal/scanner"
)

func newScanCommand() *Command {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	verbose := fs.BoolP("verbose", "v", false, "log progress to stderr")
	configPath := fs.String("config", "", "path to a JSONC config file (default: $XDG_CONFIG_HOME/looplift/config.json)")

	return &Command{
		Flags: fs,
		Usage: "scan <file> <device>",
		Short: "read-only: write a report of file's extents and their device checksums to stdout",
		Exec: func(ctx context.Context, stdin io.Reader, out, errOut io.Writer, args []string) error {
			if len(args) != 2 {
				return UsageErrorf("scan requires exactly two arguments: <file> <device>, got %d", len(args))
			}
			filePath, devicePath := args[0], args[1]

			path := *configPath
			if path == "" {
				path = config.Path()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			file, err := os.Open(filePath)
			if err != nil {
				return err
			}
			defer file.Close()

			device, err := os.Open(devicePath)
			if err != nil {
				return err
			}
			defer device.Close()

			w := extentmap.NewWriter(out)

			verboseEffective := cfg.Verbose
			if fs.Changed("verbose") {
				verboseEffective = *verbose
			}

			var progress *runlog.Progress
			if verboseEffective {
				info, statErr := file.Stat()
				if statErr == nil {
					progress = runlog.NewProgress(runlog.Default(), "scan", uint64(info.Size()))
				}
			}

			return scanner.Scan(file, device, w, cfg.ChunkSizeBytes, func(logicalOffset uint64) {
				if progress != nil {
					progress.Update(logicalOffset)
				}
			})
		},
	}
}
