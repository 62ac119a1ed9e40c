package commands

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/storage"
)

// emit renders into a buffer and sends it either to stdout or, when output
// is set, to a local path or s3:// URL.
func emit(ctx context.Context, cmd *cobra.Command, a *app.App, output string, render func(io.Writer) error) error {
	if output == "" {
		return render(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := storage.WriteURL(ctx, output, buf.Bytes(), a.StorageOptions()...); err != nil {
		return err
	}
	a.Logger.Info("Report written", "output", output, "bytes", buf.Len())
	return nil
}
