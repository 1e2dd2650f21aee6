package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"carousel/internal/extract"
	"carousel/internal/workflow"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Inspect workflow templates",
	}
	cmd.AddCommand(newTemplatesListCommand(ctx))
	cmd.AddCommand(newTemplatesShowCommand(ctx))
	return cmd
}

type templateSummary struct {
	Name       string `json:"name"`
	Nodes      int    `json:"nodes"`
	InputNode  string `json:"inputNode,omitempty"`
	OutputNode string `json:"outputNode,omitempty"`
	Default    bool   `json:"default"`
	Error      string `json:"error,omitempty"`
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates in the template directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loader, err := ctx.templateLoader()
			if err != nil {
				return err
			}
			names, err := loader.List()
			if err != nil {
				return fmt.Errorf("list templates in %s: %w", cfg.Templates.Dir, err)
			}

			summaries := make([]templateSummary, 0, len(names))
			for _, name := range names {
				summary := templateSummary{Name: name, Default: name == cfg.Templates.Default}
				tmpl, err := loader.Load(name)
				if err != nil {
					summary.Error = err.Error()
				} else {
					summary.Nodes = len(tmpl.Nodes)
					summary.InputNode = tmpl.Roles.InputNode
					summary.OutputNode = tmpl.Roles.OutputNode
				}
				summaries = append(summaries, summary)
			}

			if jsonOutput {
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintf(out, "No templates found in %s\n", cfg.Templates.Dir)
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				status := "ok"
				if s.Error != "" {
					status = "invalid"
				}
				name := s.Name
				if s.Default {
					name += " (default)"
				}
				rows = append(rows, []string{name, strconv.Itoa(s.Nodes), s.InputNode, s.OutputNode, status})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Template", "Nodes", "Input", "Output", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTemplatesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show the nodes of a template and the roles assigned to them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loader, err := ctx.templateLoader()
			if err != nil {
				return err
			}
			name := cfg.Templates.Default
			if len(args) == 1 {
				name = args[0]
			}
			tmpl, err := loader.Load(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			roles := tmpl.Roles
			fmt.Fprintf(out, "Template: %s\n", tmpl.Name)
			fmt.Fprintf(out, "Input:    node %s, key %s\n", roles.InputNode, roles.InputKey)
			fmt.Fprintf(out, "Output:   node %s, key %s\n", roles.OutputNode, roles.OutputKey)
			if roles.OutputPath != "" {
				fmt.Fprintf(out, "Path:     %s\n", roles.OutputPath)
			}
			probes := extract.New(roles).Probes()
			names := make([]string, 0, len(probes))
			for _, probe := range probes {
				names = append(names, probe.Name)
			}
			fmt.Fprintf(out, "Extract:  %s\n", strings.Join(names, ", "))
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Kind", "Inputs", "Role"},
				nodeRows(tmpl),
				nil,
			))
			return nil
		},
	}
}

func nodeRows(tmpl *workflow.Template) [][]string {
	rows := make([][]string, 0, len(tmpl.Nodes))
	for _, node := range tmpl.Nodes {
		var role []string
		if node.ID == tmpl.Roles.InputNode {
			role = append(role, "input")
		}
		if node.ID == tmpl.Roles.OutputNode {
			role = append(role, "output")
		}
		rows = append(rows, []string{node.ID, node.Kind, describeInputs(node.Inputs), strings.Join(role, ", ")})
	}
	return rows
}

func describeInputs(in workflow.Inputs) string {
	switch in.Shape {
	case workflow.InputsNamed:
		keys := make([]string, 0, len(in.Named))
		for key := range in.Named {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return "named: " + strings.Join(keys, ", ")
	case workflow.InputsPositional:
		return fmt.Sprintf("positional: %d", len(in.Positional))
	default:
		return in.Shape.String()
	}
}
