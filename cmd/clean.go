package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/export"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
)

var (
	cleanCategories []string
	cleanOut        string
	cleanFormat     string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean categories and print the cleaning report",
	Long:  "Loads and cleans the selected categories (all by default), prints the combined cleaning report and, with --out, exports each cleaned table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "cmd.clean"))

		reg, l := initLoader()
		specs, err := reg.Select(cleanCategories)
		if err != nil {
			return err
		}

		var w *export.Writer
		if cleanOut != "" {
			if w, err = newWriter(cleanOut, cleanFormat); err != nil {
				return err
			}
		}

		reports := make([]*preprocess.Report, 0, len(specs))
		for _, spec := range specs {
			tbl, rep, err := loadCleaned(ctx, l, spec)
			if err != nil {
				return err
			}
			reports = append(reports, rep)

			if w == nil {
				continue
			}
			path, err := w.WriteSheet(spec.Category.String()+"_cleaned", export.TableSheet(tbl))
			if err != nil {
				return err
			}
			log.Info("exported cleaned table", zap.String("path", path), zap.Int("rows", tbl.Len()))
		}

		preprocess.RenderAll(os.Stdout, reports)
		if w != nil {
			fmt.Fprintf(os.Stdout, "\nCleaned tables written to %s\n", w.Dir)
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanCategories, "category", nil, "categories to clean (default all)")
	cleanCmd.Flags().StringVar(&cleanOut, "out", "", "directory for cleaned table exports (no export when empty)")
	cleanCmd.Flags().StringVar(&cleanFormat, "format", "", "export format: csv, json or xlsx (default from config)")
	rootCmd.AddCommand(cleanCmd)
}
