// Package config provides rule-set management for the Chain Reaction game.
//
// The config package handles:
//   - Loading rule sets from JSON and YAML files
//   - Configuration validation
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Rule sets live in the configs directory as name.json, name.yaml or
// name.yml. The file name without extension is the config ID used when
// creating sessions. Each rule set defines:
//   - Board size (rows and cols, 1 to 50 each)
//   - The players in turn order (2 to 8 unique IDs)
//   - Messages for welcome, turn, victory, illegal moves and overflows
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific configuration
//	gameConfig, err := manager.LoadConfig("trio")
//
//	// Get default configuration (classic, else the first valid file,
//	// else a built-in 5x5 board)
//	defaultConfig := manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
package config
