package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"carousel/internal/api"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var templateName string
	var includeRaw bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Run a workflow template with a prompt and print the generated text",
		Long: "Run a workflow template with a prompt and print the generated text.\n\n" +
			"The prompt is taken from the arguments, or from stdin when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			svc, _, _, err := ctx.generationService()
			if err != nil {
				return err
			}

			outcome, runErr := svc.Run(cmd.Context(), templateName, prompt)
			if jsonOutput {
				if runErr != nil {
					if err := writeJSON(cmd, api.NewErrorResponse(runErr)); err != nil {
						return err
					}
					return runErr
				}
				resp, err := api.NewGenerateResponse(outcome, includeRaw)
				if err != nil {
					return fmt.Errorf("encode raw result: %w", err)
				}
				return writeJSON(cmd, resp)
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			for _, line := range outcome.Lines {
				fmt.Fprintln(out, line)
			}
			if includeRaw {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Raw result (job %s, probe %s):\n", outcome.JobID, outcome.Probe)
				return writeJSON(cmd, outcome.Document)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "Workflow template name (defaults to templates.default)")
	cmd.Flags().BoolVar(&includeRaw, "raw", false, "Also print the engine's raw result document")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// readPrompt joins args into the prompt, falling back to stdin when no
// arguments were given.
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if in == nil {
		return "", errors.New("prompt is required")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	return string(data), nil
}
