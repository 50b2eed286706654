package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"itvetl/internal/config"
)

var errInvalidConfig = errors.New("configuration has errors")

func newValidateConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration without running a load",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			issues := config.Validate(cfg)
			printIssues(cmd.OutOrStdout(), issues)
			if config.HasErrors(issues) {
				return errInvalidConfig
			}
			return nil
		},
	}
}

func printIssues(w io.Writer, issues []config.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "configuration OK")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Path", "Message"})
	for _, iss := range issues {
		t.AppendRow(table.Row{iss.Severity, iss.Path, iss.Message})
	}
	t.Render()
}
