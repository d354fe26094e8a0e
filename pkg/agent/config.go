package agent

import (
	"log"
	"os"

	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/joho/godotenv"
)

// LoadAgentConfig loads configuration for a specific agent. The global .env
// and the process environment form the base, and values from the
// agent-specific .env.<name> file are laid over them
func LoadAgentConfig(agentName string) *utils.Config {
	config := utils.NewConfigFromEnv(utils.EnvFile())
	if agentName == "" {
		return config
	}

	file := ".env." + agentName
	if _, err := os.Stat(file); err != nil {
		return config
	}

	overlay, err := godotenv.Read(file)
	if err != nil {
		log.Printf("[AGENT]: Warning, could not read %s: %v", file, err)
		return config
	}
	for key, value := range overlay {
		config.Set(key, value)
	}

	return config
}
