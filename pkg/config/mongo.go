package config

import (
	"fmt"
	"strings"
	"time"
)

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *MongoConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo URI is not configured")
	}
	if !isValidMongoURI(c.URI) {
		return fmt.Errorf("mongo URI must start with 'mongodb://': %s", c.URI)
	}
	if c.Database == "" {
		return fmt.Errorf("mongo database name is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("mongo connect timeout is not configured")
	}
	return nil
}

// isValidMongoURI checks if the provided URI is a valid MongoDB connection string
func isValidMongoURI(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") ||
		strings.HasPrefix(uri, "mongodb+srv://")
}
