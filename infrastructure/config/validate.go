package config

import "fmt"

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired fails when value is empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePort fails when port is outside 1-65535.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// Validate checks the listener port.
func (c *ServerConfig) Validate() error {
	return ValidatePort("server.port", c.Port)
}

// Validate checks connection settings when the database is enabled.
func (c *DatabaseConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := ValidateRequired("database.host", c.Host); err != nil {
		return err
	}
	if err := ValidatePort("database.port", c.Port); err != nil {
		return err
	}
	if err := ValidateRequired("database.user", c.User); err != nil {
		return err
	}
	return ValidateRequired("database.database", c.Database)
}

// Validate checks the URL when Elasticsearch is enabled.
func (c *ElasticsearchConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return ValidateRequired("elasticsearch.url", c.URL)
}

// Validate checks level and format.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return &ValidationError{Field: "logging.format", Message: "must be one of: json, console"}
	}
	return nil
}
