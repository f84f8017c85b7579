package cli

import (
	"fmt"
	"os"

	service "github.com/okian/dropout/internal/app"
	"github.com/okian/dropout/internal/domain/coerce"
	"github.com/okian/dropout/pkg/logger"
	"github.com/spf13/cobra"
)

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print the derived feature vector of a student record",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd)
			if err != nil {
				return err
			}
			svc := service.New(service.WithLogger(logger.Named("service")))
			v := svc.DeriveFeatures(cmd.Context(), rec, rec.CurrentTerm())
			return printJSON(cmd.OutOrStdout(), v.Map())
		},
	}
}

func predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Score the dropout risk of a student record",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd)
			if err != nil {
				return err
			}
			svc, err := startService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			p, err := svc.PredictBasic(cmd.Context(), rec)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func scenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Compare current risk with the risk after one more term",
		RunE: func(cmd *cobra.Command, args []string) error {
			future, _ := cmd.Flags().GetFloat64("future-gpa")
			if future < 0 || future > 4 {
				return fmt.Errorf("--future-gpa must be within [0, 4], got %v", future)
			}
			rec, err := readRecord(cmd)
			if err != nil {
				return err
			}
			svc, err := startService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			out, err := svc.PredictFuture(cmd.Context(), rec, future)
			if err != nil {
				return fmt.Errorf("scenario: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Float64("future-gpa", 0, "Grade assumed for the next term")
	_ = cmd.MarkFlagRequired("future-gpa")
	return cmd
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every row of a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()

			svc, err := startService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			rows, err := svc.ReadBatch(f, path)
			if err != nil {
				return err
			}
			out, err := svc.PredictBatch(cmd.Context(), rows)
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringP("file", "f", "", "CSV or XLSX file with one student per row")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func facultiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faculties",
		Short: "List the faculty names the models know, with their codes",
		Long:  "Faculty names outside this list are scored as code 0.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := coerce.FacultyNames()
			type entry struct {
				Code int    `json:"code"`
				Name string `json:"name"`
			}
			out := make([]entry, 0, len(names))
			for code := 0; code < len(names); code++ {
				out = append(out, entry{Code: code, Name: names[code]})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
