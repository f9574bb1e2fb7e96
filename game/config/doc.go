// Package config provides board configuration management for the Partridge board.
//
// The config package handles:
//   - Loading board configurations from JSON files
//   - Validation through engine.ValidateBoardConfig
//   - Default configuration selection
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Board configurations are JSON files in the configs directory. Each one
// defines the grid size in cells, the cell size in pixels, the number of
// square sizes N (the inventory holds n squares of size n for n = 1..N),
// whether the inventory must exactly tile the board, and optional message
// templates.
//
// Available Configurations:
//   - partridge: the reference 45x45 board with sizes 1..9
//   - mini: a 6x6 board with sizes 1..3
//   - practice: a loose 12x12 board with sizes 1..4
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	boardConfig, err := manager.LoadConfig("mini")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When no valid file exists the manager falls back to
// engine.DefaultBoardConfig.
package config
