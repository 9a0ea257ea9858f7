package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/awsl-project/ranstat/internal/config"
	"github.com/awsl-project/ranstat/internal/version"
)

type rootOptions struct {
	dataDir    string
	configPath string
	getenv     func(string) string
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &rootOptions{getenv: getenv}

	root := &cobra.Command{
		Use:   "ranstat",
		Short: "Radio network KPI aggregation service",
		Long:  "ranstat imports raw NR/LTE counter exports, aggregates them into hourly and weekly KPI records and serves them over HTTP.",
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&opts.dataDir, "data", "", "Data directory for database, config and logs (default: ~/.config/ranstat)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config TOML path (default: <data>/ranstat.toml)")

	root.AddCommand(newServeCmd(opts), newImportCmd(opts), newVersionCmd())
	return root
}

// loadConfig 优先级：命令行 > 环境变量 > 配置文件 > 默认值
func (o *rootOptions) loadConfig() (*config.Config, error) {
	getenv := o.getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	// 先确定数据目录，配置文件默认放在数据目录下
	dataDir := o.dataDir
	if dataDir == "" {
		dataDir = getenv("RANSTAT_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := o.configPath
	if path == "" {
		path = config.Path(dataDir)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv(getenv)
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	} else if cfg.DataDir == config.DefaultDataDir() {
		cfg.DataDir = dataDir
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ranstat", version.Full())
		},
	}
}
