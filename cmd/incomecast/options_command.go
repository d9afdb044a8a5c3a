package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"incomecast/internal/demographics"
	"incomecast/internal/services"
)

func newOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "options [field]",
		Short:       "List accepted values for the categorical answers",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			defaults := demographics.Default()
			if len(args) == 0 {
				rows := make([][]string, 0, len(demographics.CategoricalFields()))
				for _, field := range demographics.CategoricalFields() {
					rows = append(rows, []string{
						flagName(field),
						strconv.Itoa(len(demographics.Options(field))),
						defaults.Value(field),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Field", "Choices", "Default"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			field := args[0]
			values := demographics.Options(field)
			if values == nil {
				return services.Wrap(services.ErrValidation, "options", "", fmt.Sprintf("%q is not a categorical field", field), nil)
			}
			current := defaults.Value(field)
			for _, v := range values {
				marker := "  "
				if v == current {
					marker = "* "
				}
				fmt.Fprintln(out, marker+v)
			}
			if strings.EqualFold(strings.ReplaceAll(field, "-", "_"), demographics.FieldEducation) {
				fmt.Fprintln(out, "\nEducation is sent to the backend as its level number (9th=5 ... Doctorate=16).")
			}
			return nil
		},
	}
}
