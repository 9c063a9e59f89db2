package config

import (
	"os"

	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/models"
)

// ToDatabaseConfig converts Config to database.Config
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Username: c.Database.Username,
		Password: c.Database.Password,
		Database: c.Database.Database,
		Timeout:  c.Database.Timeout,
	}
}

// ToLoggingConfig converts Config to logging.Config
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:       c.Logging.Level,
		Output:      os.Stdout,
		Prefix:      c.Logging.Prefix,
		EnableColor: c.Logging.EnableColor,
		Format:      c.Logging.Format,
	}
}

// ToScoringConfig returns the round scoring defaults
func (c *Config) ToScoringConfig() models.ScoringConfig {
	scoring := models.DefaultScoringConfig()
	scoring.ExactPositionPoints = c.Scoring.ExactPositionPoints
	scoring.Top3AnyPositionPoints = c.Scoring.Top3AnyPositionPoints
	scoring.ExactLastPlacePoints = c.Scoring.ExactLastPlacePoints
	return scoring
}
