// Package cli implements the dropoutctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/dropout/internal/adapters/models"
	service "github.com/okian/dropout/internal/app"
	"github.com/okian/dropout/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the dropoutctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dropoutctl",
		Short:         "Score student dropout risk from the command line",
		Long:          "dropoutctl derives features and scores dropout risk for student records using the same models as the HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			return logger.SetLevelString(level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("input", "i", "", "Student record JSON file (default: stdin)")
	flags.String("model-dir", "models", "Directory holding model_term1..3 files")
	flags.String("model-format", string(models.FormatXGBoost), "Model format: xgboost or onnx")
	flags.String("onnx-library", "", "Path to the onnxruntime shared library (onnx only)")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(featuresCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(scenarioCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(facultiesCmd())
	return root
}

// Execute runs the command tree against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// startService loads the models named by the persistent flags and starts a
// single-worker service. The caller must Stop it.
func startService(cmd *cobra.Command) (*service.Service, error) {
	dir, _ := cmd.Flags().GetString("model-dir")
	name, _ := cmd.Flags().GetString("model-format")
	lib, _ := cmd.Flags().GetString("onnx-library")

	format, err := models.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	opts := []models.Option{models.WithFormat(format), models.WithLogger(logger.Named("models"))}
	if lib != "" {
		opts = append(opts, models.WithONNXLibrary(lib))
	}
	loader, err := models.NewFileLoader(dir, opts...)
	if err != nil {
		return nil, err
	}

	svc := service.New(
		service.WithLoader(loader),
		service.WithLoadPolicy(1, 0),
		service.WithWorkerCount(1),
		service.WithLogger(logger.Named("service")),
	)
	if err := svc.Start(cmd.Context()); err != nil {
		return nil, err
	}
	return svc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
