package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"incomecast/internal/demographics"
	"incomecast/internal/services"
)

type recordFlags struct {
	file   string
	values map[string]*string
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func (f *recordFlags) register(cmd *cobra.Command) {
	defaults := demographics.Default()
	f.values = make(map[string]*string, len(demographics.Fields()))
	for _, field := range demographics.Fields() {
		value := new(string)
		f.values[field] = value
		usage := demographics.Label(field)
		if demographics.Options(field) != nil {
			usage += fmt.Sprintf(" (list choices with: incomecast options %s)", flagName(field))
		}
		cmd.Flags().StringVar(value, flagName(field), defaults.Value(field), usage)
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read answers from a YAML or JSON file; flags override file values")
}

// build starts from the form defaults, overlays the file, then any flags the
// user actually set. Values are passed through as given; range checks belong
// to the backend.
func (f *recordFlags) build(cmd *cobra.Command) (demographics.Record, error) {
	rec := demographics.Default()
	if path := strings.TrimSpace(f.file); path != "" {
		loaded, err := demographics.LoadFile(path)
		if err != nil {
			return rec, services.Wrap(services.ErrValidation, "predict", "load record", "", err)
		}
		rec = rec.Merge(loaded)
	}
	for _, field := range demographics.Fields() {
		if !cmd.Flags().Changed(flagName(field)) {
			continue
		}
		if err := rec.Set(field, *f.values[field]); err != nil {
			return rec, services.Wrap(services.ErrValidation, "predict", "parse flags", "", err)
		}
	}
	return rec, nil
}
