package config_test

import (
	"fmt"

	"github.com/hanbat-quant/sentinel/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Trading mode: %s\n", cfg.Trading.Mode)
	fmt.Printf("Store path: %s\n", cfg.DB.Path)
}
