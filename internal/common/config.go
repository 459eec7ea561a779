package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Service    ServiceConfig    `toml:"service"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Repository RepositoryConfig `toml:"repository"`
	Sync       SyncConfig       `toml:"sync"`
	Rules      RulesConfig      `toml:"rules"`
}

type ServiceConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	Port        int    `toml:"port"`
}

type StorageConfig struct {
	DatabasePath  string `toml:"database_path"`
	BackupDir     string `toml:"backup_dir"`
	RetentionDays int    `toml:"retention_days"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

// RepositoryConfig describes the legacy repository this service discovers
// from. Username/Password are only used by the REST protocol; CLIPath is only
// used by the CLI protocol.
type RepositoryConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Protocol       string `toml:"protocol"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	CLIPath        string `toml:"cli_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SyncConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	LifetimeHours   int `toml:"lifetime_hours"`
}

// RulesConfig externalizes the classification lookup tables. The defaults
// cover the transformation subtypes and expression functions the migration
// tooling has no automated path for.
type RulesConfig struct {
	UnsupportedTransformationTypes []string `toml:"unsupported_transformation_types"`
	LegacyExpressionFunctions      []string `toml:"legacy_expression_functions"`
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	defaultDBPath := filepath.Join(execDir, "data", execName+".db")

	return &Config{
		Service: ServiceConfig{
			Name:        execName,
			Environment: "development",
			Port:        8080,
		},
		Storage: StorageConfig{
			DatabasePath:  defaultDBPath,
			BackupDir:     "./backups",
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
		Repository: RepositoryConfig{
			Host:           "localhost",
			Port:           6005,
			Protocol:       "REST",
			CLIPath:        "pmrepcli",
			TimeoutSeconds: 10,
		},
		Sync: SyncConfig{
			IntervalSeconds: 30,
			LifetimeHours:   24,
		},
		Rules: RulesConfig{
			UnsupportedTransformationTypes: []string{
				"XML Parser",
				"XML Generator",
				"MQ Source Qualifier",
				"External Procedure",
			},
			LegacyExpressionFunctions: []string{
				"DECODE",
				"IIF_NESTED",
			},
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			return config, nil
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
	if backupDir := os.Getenv("BACKUP_DIR"); backupDir != "" {
		config.Storage.BackupDir = backupDir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Service.Port = portNum
		}
	}

	if host := os.Getenv("REPOSITORY_HOST"); host != "" {
		config.Repository.Host = host
	}
	if user := os.Getenv("REPOSITORY_USERNAME"); user != "" {
		config.Repository.Username = user
	}
	if pass := os.Getenv("REPOSITORY_PASSWORD"); pass != "" {
		config.Repository.Password = pass
	}
}

func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}

	if c.Service.Port <= 0 {
		c.Service.Port = 8080
	}

	switch c.Repository.Protocol {
	case "REST", "CLI":
	default:
		return fmt.Errorf("invalid repository protocol: %s", c.Repository.Protocol)
	}

	if c.Repository.TimeoutSeconds <= 0 {
		c.Repository.TimeoutSeconds = 10
	}
	if c.Sync.IntervalSeconds <= 0 {
		c.Sync.IntervalSeconds = 30
	}
	if c.Sync.LifetimeHours <= 0 {
		c.Sync.LifetimeHours = 24
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}
