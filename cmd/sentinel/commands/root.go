package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - 한국 주식 자동매매 어시스턴트",
	Long: `Sentinel Unified CLI

데이터 수집부터 매매 신호 생성, 포지션 관리, 장후 정산까지
하루 주기로 돌아가는 자동매매 어시스턴트의 운영 CLI.

Usage:
  go run ./cmd/sentinel [command]

Examples:
  go run ./cmd/sentinel run
  go run ./cmd/sentinel job list
  go run ./cmd/sentinel job status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
