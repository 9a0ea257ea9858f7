package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/service"
)

// newImportCmd 离线导入：直接写配置的数据库，不经过 HTTP，不发布事件
func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <feed> <file>",
		Short: "Import one counter export into the configured database",
		Long: "Import one counter export (CSV or XLSX, optionally .gz/.zst/.br compressed) into the configured database.\n" +
			"Feeds: nr_hourly, lte_hourly, nr_site_weekly. Prints the import summary as JSON.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := domain.ParseFeed(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			svc := service.NewImportService(st.nr, st.lte, st.weekly, st.batches, nil, nil, nil)
			summary, importErr := svc.Import(cmd.Context(), feed, filepath.Base(args[1]), f)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			return importErr
		},
	}
}
