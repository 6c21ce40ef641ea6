package cli

import (
	"context"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/gaby/looplift/internal/config"
	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/finalizer"
	"github.com/gaby/looplift/internal/planner"
	"github.com/gaby/looplift/internal/runlog"
	"github.com/gaby/looplift/internal/shuffler"
)

func newLiftCommand() *Command {
	fs := flag.NewFlagSet("lift", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "perform every check but suppress writes")
	configPath := fs.String("config", "", "path to a JSONC config file (default: $XDG_CONFIG_HOME/looplift/config.json)")
	initConfig := fs.Bool("init-config", false, "write a commented default config file to --config (or the default path) and exit")

	return &Command{
		Flags: fs,
		Usage: "lift [flags] <device>",
		Short: "destructive: read a report from stdin and rearrange device's bytes to match it",
		Exec: func(ctx context.Context, stdin io.Reader, out, errOut io.Writer, args []string) error {
			path := *configPath
			if path == "" {
				path = config.Path()
			}

			if *initConfig {
				if err := config.WriteDefault(path); err != nil {
					return err
				}
				runlog.Default().Printf("lift: wrote default config to %s", path)
				return nil
			}

			if len(args) != 1 {
				return UsageErrorf("lift requires exactly one argument: <device>, got %d", len(args))
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			dryRunEffective := cfg.DryRunDefault
			if fs.Changed("dry-run") {
				dryRunEffective = *dryRun
			}

			device, err := os.OpenFile(args[0], os.O_RDWR, 0)
			if err != nil {
				return err
			}
			defer device.Close()

			deviceLength, err := device.Seek(0, io.SeekEnd)
			if err != nil {
				return err
			}

			dio := diskio.NewSized(device, dryRunEffective, cfg.ChunkSizeBytes)

			plan, err := planner.Plan(stdin, dio, uint64(deviceLength))
			if err != nil {
				return err
			}

			if cfg.Verbose {
				runlog.Default().Printf("lift: plan built, %d copy operations, %d zero regions, dry_run=%v",
					len(plan.Verifies), len(plan.Zeros), dryRunEffective)
			}

			if err := shuffler.Run(plan.Copies, dio); err != nil {
				return err
			}

			if err := finalizer.Run(plan, dio); err != nil {
				return err
			}

			if dryRunEffective {
				runlog.Default().Printf("lift: dry run complete, device left unchanged")
			} else {
				runlog.Default().Printf("lift: complete, wrote %d bytes in %d operations",
					dio.Stats.WriteBytes, dio.Stats.WriteOps)
			}

			return nil
		},
	}
}
