package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carousel/internal/preflight"
)

type statusReport struct {
	Config          string             `json:"config"`
	Engine          string             `json:"engine"`
	DefaultTemplate string             `json:"defaultTemplate"`
	Templates       int                `json:"templates"`
	Checks          []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run readiness checks against the engine and template directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.engineClient()
			if err != nil {
				return err
			}
			loader, err := ctx.templateLoader()
			if err != nil {
				return err
			}

			names, _ := loader.List()
			report := statusReport{
				Config:          ctx.configPath,
				Engine:          client.BaseURL(),
				DefaultTemplate: cfg.Templates.Default,
				Templates:       len(names),
				Checks:          preflight.RunAll(cmd.Context(), cfg, client, loader),
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Config:    %s\n", report.Config)
				fmt.Fprintf(out, "Templates: %d available\n", report.Templates)
				rows := make([][]string, 0, len(report.Checks))
				for _, check := range report.Checks {
					rows = append(rows, []string{check.Name, passFail(check.Passed), check.Detail})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, rows, nil))
			}

			if failed := preflight.Failed(report.Checks); len(failed) > 0 {
				return fmt.Errorf("%d readiness check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func passFail(passed bool) string {
	if passed {
		return "ok"
	}
	return "FAIL"
}
