package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// BoardConfig describes a puzzle board as loaded from JSON
type BoardConfig struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	GridSize           int    `json:"grid_size"`
	CellSize           int    `json:"cell_size"`
	SquareSizes        int    `json:"square_sizes"`
	RequireExactTiling bool   `json:"require_exact_tiling"`
	Messages           struct {
		Welcome  string `json:"welcome"`
		Placed   string `json:"placed"`
		Moved    string `json:"moved"`
		Removed  string `json:"removed"`
		Rejected string `json:"rejected"`
		Complete string `json:"complete"`
	} `json:"messages"`
}

// Geometry returns the placement geometry described by the config
func (c *BoardConfig) Geometry() Geometry {
	return Geometry{GridSize: c.GridSize, CellSize: c.CellSize}
}

// ValidateBoardConfig checks a board configuration for consistency
func ValidateBoardConfig(config *BoardConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.SquareSizes < MinSquareSize || config.SquareSizes > MaxSquareSizes {
		return fmt.Errorf("config validation: square_sizes must be between %d and %d, got %d",
			MinSquareSize, MaxSquareSizes, config.SquareSizes)
	}
	if config.GridSize < config.SquareSizes || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between square_sizes (%d) and %d, got %d",
			config.SquareSizes, MaxGridSize, config.GridSize)
	}
	if config.CellSize < MinCellSize || config.CellSize > MaxCellSize {
		return fmt.Errorf("config validation: cell_size must be between %d and %d, got %d",
			MinCellSize, MaxCellSize, config.CellSize)
	}

	if config.RequireExactTiling {
		if err := CheckTiling(config); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	return nil
}

// CheckTiling verifies that the full inventory exactly covers the board area
func CheckTiling(config *BoardConfig) error {
	area := TilingArea(config.SquareSizes)
	board := config.GridSize * config.GridSize
	if area != board {
		return fmt.Errorf("squares 1..%d cover %d cells but a %dx%d board has %d",
			config.SquareSizes, area, config.GridSize, config.GridSize, board)
	}
	return nil
}

// LoadBoardConfig loads and validates a board configuration from a JSON file
func LoadBoardConfig(filename string) (*BoardConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config BoardConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateBoardConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultBoardConfig returns the reference 45x45 board with sizes 1..9
func DefaultBoardConfig() *BoardConfig {
	config := &BoardConfig{
		Name:               "partridge",
		Description:        "Partridge tiling: n squares of size n for n = 1..9 on a 45x45 board",
		GridSize:           DefaultGridSize,
		CellSize:           DefaultCellSize,
		SquareSizes:        DefaultSquareSizes,
		RequireExactTiling: true,
	}
	setDefaultMessages(config)
	return config
}

func setDefaultMessages(config *BoardConfig) {
	m := &config.Messages
	if m.Welcome == "" {
		m.Welcome = "Drag squares onto the board. Double-click to lock, right-click to remove."
	}
	if m.Placed == "" {
		m.Placed = "Placed a %dx%d square"
	}
	if m.Moved == "" {
		m.Moved = "Moved a %dx%d square"
	}
	if m.Removed == "" {
		m.Removed = "Removed a %dx%d square"
	}
	if m.Rejected == "" {
		m.Rejected = "Can't do that: %s"
	}
	if m.Complete == "" {
		m.Complete = "Board complete! All %d squares placed."
	}
}
