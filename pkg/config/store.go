package config

import "fmt"

// Store gateway modes.
const (
	StoreModeMongo  = "mongo"
	StoreModeMemory = "memory"
)

type StoreConfig struct {
	// Mode selects the gateway implementation: "mongo" or "memory".
	Mode string `koanf:"mode"`

	// LowStockThreshold flags products with quantity strictly below it.
	// Zero falls back to the service default.
	LowStockThreshold int64 `koanf:"lowStockThreshold"`
}

func (c *StoreConfig) Validate() error {
	switch c.Mode {
	case StoreModeMongo, StoreModeMemory:
	default:
		return fmt.Errorf("unknown store mode: %q", c.Mode)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative: %d", c.LowStockThreshold)
	}
	return nil
}
