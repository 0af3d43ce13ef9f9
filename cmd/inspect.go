package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/loader"
)

var (
	inspectCategory string
	inspectSample   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Profile the raw extracts of a category before cleaning",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := dataset.ParseCategory(inspectCategory)
		if err != nil {
			return err
		}
		_, l := initLoader()

		raw, err := l.Load(ctx, c, loader.Options{Partitions: cfg.Data.Partitions})
		if err != nil {
			return eris.Wrap(err, "inspect")
		}

		loader.ProfileRaw(raw, inspectSample).Render(os.Stdout)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCategory, "category", "enrolment", "dataset category (enrolment, demographic, biometric)")
	inspectCmd.Flags().IntVar(&inspectSample, "sample", 5, "number of example rows to print")
	rootCmd.AddCommand(inspectCmd)
}
