// Package main is the entry point for the cachecleanup CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cache-cleanup/internal/exitcodes"
	"cache-cleanup/plugin"
)

// Set by ldflags.
var version = "dev"

type globalFlags struct {
	config   string
	root     string
	debug    bool
	textfile string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cachecleanup: %v\n", err)
		os.Exit(exitcodes.For(err))
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "cachecleanup",
		Short:         "Delete or empty project paths around test lifecycle hooks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcodes.WithCode(exitcodes.InvalidConfig, err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "cachecleanup.yml", "Path to configuration file")
	pf.StringVar(&flags.root, "root", "", "Override rootDir from the configuration")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.textfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(runCmd(flags), checkCmd(flags), historyCmd(flags))
	return root
}

func (f *globalFlags) open() (*plugin.Plugin, error) {
	opts := []plugin.Option{plugin.WithRoot(f.root)}
	if f.debug {
		opts = append(opts, plugin.WithDebug())
	}
	if f.textfile != "" {
		opts = append(opts, plugin.WithMetricsTextfile(f.textfile))
	}
	p, err := plugin.Open(f.config, opts...)
	if err != nil {
		return nil, exitcodes.WithCode(exitcodes.InvalidConfig, err)
	}
	return p, nil
}

// hookArgs rejects anything but the four hook names before a config is read
func hookArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return exitcodes.WithCode(exitcodes.InvalidConfig, fmt.Errorf("at least one hook is required"))
	}
	for _, a := range args {
		if !plugin.Hook(a).Valid() {
			return fmt.Errorf("%w: %s", plugin.ErrUnknownHook, a)
		}
	}
	return nil
}

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <hook>...",
		Short: "Run the jobs bound to one or more hooks, in the given order",
		Example: `  cachecleanup run beforeSuite
  cachecleanup run afterTest afterSuite --root ./build`,
		Args:      hookArgs,
		ValidArgs: []string{"beforeSuite", "afterSuite", "beforeTest", "afterTest"},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := flags.open()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := p.Close(); cerr != nil && err == nil {
					err = exitcodes.WithCode(exitcodes.RuntimeError, cerr)
				}
			}()

			for _, a := range args {
				if err := p.RunHook(plugin.Hook(a)); err != nil {
					return exitcodes.WithCode(exitcodes.HookFailed, err)
				}
			}
			return nil
		},
	}
}
