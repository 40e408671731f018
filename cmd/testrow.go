package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"health-sync/feature/provider/models"
)

// testRowCmd writes a single probe row to verify the sink end to end
// (credentials, bucket or table, header) without touching any provider.
var testRowCmd = &cobra.Command{
	Use:   "test-row",
	Short: "Write one probe row to verify sink connectivity",
	RunE:  runTestRow,
}

func init() {
	RootCmd.AddCommand(testRowCmd)
}

func runTestRow(cmd *cobra.Command, args []string) error {
	cfg, l, err := setup()
	if err != nil {
		return err
	}

	snk, err := buildSink(cfg, l)
	if err != nil {
		return err
	}

	rec := models.Record{
		Date:   time.Now().Format(models.DateLayout),
		Source: "cli-test",
	}

	written, err := snk.AppendRows(context.Background(), [][]string{rec.Row()})
	if err != nil {
		return err
	}

	l.Info("probe row written", zap.Int("rows", written), zap.String("date", rec.Date))
	return nil
}
