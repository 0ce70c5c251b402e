// Package cli 提供 mealctl 命令行：模板下载、离线校验、预览和提交
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"choma/internal/config"
	"choma/internal/logger"
)

// Version 构建时注入
var Version = "0.1.0"

// cliOperator 命令行导入使用的操作员会话名
const cliOperator = "mealctl"

// options 全局参数与加载后的配置
type options struct {
	configDir string
	dataDir   string
	verbose   bool

	cfg *config.AppConfig
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "mealctl",
		Short: "Bulk meal import tool",
		Long: `mealctl prepares and submits bulk meal imports from spreadsheets.

Download the template, fill one meal per row, then validate, preview
and submit the file. Pricing and earnings are calculated from the
configured cost model before anything is sent.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory containing config.toml and .env (default: executable directory)")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory for the local store (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newTemplateCmd(opts))
	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))
	rootCmd.AddCommand(newSubmitCmd(opts))

	return rootCmd
}

// Execute 执行根命令
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) load() error {
	var (
		cfg *config.AppConfig
		err error
	)
	if o.configDir != "" {
		cfg, _, err = config.LoadConfigFrom(o.configDir)
	} else {
		cfg, _, err = config.LoadConfigWithInfo()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.dataDir != "" {
		cfg.Data.DataDir = o.dataDir
	}
	if err := cfg.Pricing.CostModel().Validate(); err != nil {
		return fmt.Errorf("pricing config: %w", err)
	}
	o.cfg = cfg

	// 默认静默，-v 时输出调试日志到 stderr
	if o.verbose {
		if err := logger.Initialize("development", "debug"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return nil
}
