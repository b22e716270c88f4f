package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tummy-tracker/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataPath                string
	ModelPath               string
	MinMealsForML           int
	APIPort                 int
	MetricsPort             int
	EnablePredictions       bool
	EnableFeatureImportance bool
	SymptomWindow           time.Duration
	RequestTimeout          time.Duration
	LogLevel                string
	LogPretty               bool
}

type ConfigFile struct {
	ML struct {
		ModelPath               string `yaml:"modelPath"`
		MinMealsForML           int    `yaml:"minMealsForML"`
		EnablePredictions       *bool  `yaml:"enablePredictions"`
		EnableFeatureImportance *bool  `yaml:"enableFeatureImportance"`
	} `yaml:"ml"`

	Tracking struct {
		SymptomWindow string `yaml:"symptomWindow"`
	} `yaml:"tracking"`

	System struct {
		DataPath       string `yaml:"dataPath"`
		APIPort        int    `yaml:"apiPort"`
		MetricsPort    int    `yaml:"metricsPort"`
		RequestTimeout string `yaml:"requestTimeout"`
		LogLevel       string `yaml:"logLevel"`
		LogPretty      bool   `yaml:"logPretty"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Parse durations
	window, err := time.ParseDuration(config.Tracking.SymptomWindow)
	if err != nil {
		window = common.DefaultSymptomWindow
	}

	requestTimeout, err := time.ParseDuration(config.System.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout
	}

	settings := Settings{
		DataPath:                getEnvOrDefault(common.EnvDataPath, orString(config.System.DataPath, common.DefaultDataPath)),
		ModelPath:               getEnvOrDefault(common.EnvModelPath, orString(config.ML.ModelPath, common.DefaultModelPath)),
		MinMealsForML:           getIntFromEnvOrConfig(common.EnvMinMealsForML, config.ML.MinMealsForML, common.DefaultMinMealsForML),
		APIPort:                 getIntFromEnvOrConfig(common.EnvAPIPort, config.System.APIPort, common.DefaultAPIPort),
		MetricsPort:             getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		EnablePredictions:       getBoolFromEnvOrConfig(common.EnvEnablePredictions, config.ML.EnablePredictions, common.DefaultEnablePredictions),
		EnableFeatureImportance: getBoolFromEnvOrConfig(common.EnvEnableFeatureImportance, config.ML.EnableFeatureImportance, common.DefaultEnableFeatureImportance),
		SymptomWindow:           getDurationOrDefault(common.EnvSymptomWindow, window),
		RequestTimeout:          getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		LogLevel:                getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		LogPretty:               getBoolOrDefault(common.EnvLogPretty, config.System.LogPretty),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:                getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		ModelPath:               getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		MinMealsForML:           getIntOrDefault(common.EnvMinMealsForML, common.DefaultMinMealsForML),
		APIPort:                 getIntOrDefault(common.EnvAPIPort, common.DefaultAPIPort),
		MetricsPort:             getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		EnablePredictions:       getBoolOrDefault(common.EnvEnablePredictions, common.DefaultEnablePredictions),
		EnableFeatureImportance: getBoolOrDefault(common.EnvEnableFeatureImportance, common.DefaultEnableFeatureImportance),
		SymptomWindow:           getDurationOrDefault(common.EnvSymptomWindow, common.DefaultSymptomWindow),
		RequestTimeout:          getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
		LogLevel:                getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogPretty:               getBoolOrDefault(common.EnvLogPretty, false),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue *bool, defaultValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

// validateSettings performs range checks on every configuration value
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if settings.MinMealsForML < common.MinMinMealsForML || settings.MinMealsForML > common.MaxMinMealsForML {
		return fmt.Errorf("minimum meals for ML must be between %d and %d, got %d",
			common.MinMinMealsForML, common.MaxMinMealsForML, settings.MinMealsForML)
	}

	if settings.APIPort < common.MinPort || settings.APIPort > common.MaxPort {
		return fmt.Errorf("API port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.APIPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.APIPort == settings.MetricsPort {
		return fmt.Errorf("API port and metrics port must differ, both are %d", settings.APIPort)
	}

	if settings.RequestTimeout < common.MinRequestTimeout || settings.RequestTimeout > common.MaxRequestTimeout {
		return fmt.Errorf("request timeout must be between %v and %v, got %v",
			common.MinRequestTimeout, common.MaxRequestTimeout, settings.RequestTimeout)
	}
	if settings.SymptomWindow < common.MinSymptomWindow || settings.SymptomWindow > common.MaxSymptomWindow {
		return fmt.Errorf("symptom tracking window must be between %v and %v, got %v",
			common.MinSymptomWindow, common.MaxSymptomWindow, settings.SymptomWindow)
	}

	switch settings.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	return nil
}
