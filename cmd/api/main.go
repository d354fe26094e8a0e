package main

import (
	"github.com/ethanbaker/tabletalk/internal/api"
	"github.com/ethanbaker/tabletalk/pkg/utils"
)

// Start the API server
func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	// Start
	api.Start(cfg)
}
