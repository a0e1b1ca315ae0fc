package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cache-cleanup/internal/config"
	"cache-cleanup/plugin"
)

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and show what each hook would remove",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.open()
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (root: %s)\n\n", p.Root())
			for _, hook := range config.Hooks {
				if err := printPlan(out, p, hook); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printPlan(out io.Writer, p *plugin.Plugin, hook plugin.Hook) error {
	plan, err := p.Plan(hook)
	if err != nil {
		return err
	}

	if !plan.Bound {
		fmt.Fprintf(out, "%s: not bound\n\n", hook)
		return nil
	}
	fmt.Fprintf(out, "%s:\n", hook)
	for _, name := range plan.MissingJobs {
		fmt.Fprintf(out, "  warning: job %q is not defined, skipped\n", name)
	}
	if len(plan.Steps) == 0 {
		fmt.Fprintln(out, "  nothing to do")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  JOB\tACTION\tPATH")
	for _, s := range plan.Steps {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", s.Job, s.Action, s.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}
