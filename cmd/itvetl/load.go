package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"itvetl/internal/domain"
	"itvetl/internal/pipeline"
)

func newLoadCmd(root *rootOptions) *cobra.Command {
	var (
		sources  string
		validate bool
		details  bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run one load into the configured store",
		Long: `Read the requested sources, normalize and reconcile them, and replace
the contents of the configured store with the result.

Sources are reconciled in the order given: when two sources publish the
same station, the first one wins.`,
		Example: `  itvetl load --sources CV,CAT,GAL
  itvetl load --sources GAL --validate --details`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srcs, err := parseSources(sources)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.Load(cmd.Context(), pipeline.Request{
				Sources:             srcs,
				ValidateCoordinates: validate,
			})
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, details)
			return nil
		},
	}
	cmd.Flags().StringVar(&sources, "sources", "CV,CAT,GAL", "comma-separated sources in priority order")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate CV coordinates with the geocoder")
	cmd.Flags().BoolVar(&details, "details", false, "list every repaired and discarded station")
	return cmd
}

// parseSources splits a comma-separated list such as "cv, CAT".
func parseSources(in string) ([]domain.Source, error) {
	var out []domain.Source
	for _, part := range strings.Split(in, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		src, err := domain.ParseSource(part)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sources given")
	}
	return out, nil
}
