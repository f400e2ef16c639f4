package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/fundflow/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fundflow",
	Short: "Sina 자금흐름(资金流向) 히스토리 수집기",
	Long: `fundflow CLI

Sina finance money-flow 엔드포인트에서 종목별 일간 자금흐름 히스토리를
페이지 단위로 수집하고 정제하여 Parquet(ZSTD) / CSV 로 저장합니다.

Usage:
  go run ./cmd/fundflow [command]

Examples:
  go run ./cmd/fundflow fetch sh.600519
  go run ./cmd/fundflow schedule --now
  go run ./cmd/fundflow api
  go run ./cmd/fundflow test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads config and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, err
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}
