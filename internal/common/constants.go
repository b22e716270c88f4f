package common

import "time"

// Environment variable keys
const (
	EnvConfigFile              = "CONFIG_FILE"
	EnvDataPath                = "DATA_PATH"
	EnvModelPath               = "ML_MODEL_PATH"
	EnvMinMealsForML           = "MIN_MEALS_FOR_ML"
	EnvAPIPort                 = "API_PORT"
	EnvMetricsPort             = "METRICS_PORT"
	EnvEnablePredictions       = "ENABLE_ML_PREDICTIONS"
	EnvEnableFeatureImportance = "ENABLE_FEATURE_IMPORTANCE"
	EnvSymptomWindow           = "SYMPTOM_TRACKING_WINDOW"
	EnvRequestTimeout          = "REQUEST_TIMEOUT"
	EnvLogLevel                = "LOG_LEVEL"
	EnvLogPretty               = "LOG_PRETTY"
	EnvServerURL               = "TUMMY_SERVER_URL"
)

// Configuration defaults
const (
	DefaultDataPath                = "data"
	DefaultModelPath               = "data/models"
	DefaultMinMealsForML           = 10
	DefaultAPIPort                 = 8080
	DefaultMetricsPort             = 9090
	DefaultEnablePredictions       = true
	DefaultEnableFeatureImportance = true
	DefaultSymptomWindow           = 24 * time.Hour
	DefaultRequestTimeout          = 10 * time.Second
	DefaultLogLevel                = "info"
	DefaultServerURL               = "http://localhost:8080"
)

// Model training constants
const (
	ForestTrees        = 100
	RandomSeed         = 42
	ValidationFraction = 0.2
	LogisticMaxIter    = 1000
	DecisionThreshold  = 0.5
)

// Validation constants
const (
	MinMinMealsForML  = 4
	MaxMinMealsForML  = 100000
	MinPort           = 1024
	MaxPort           = 65535
	MinRequestTimeout = time.Second
	MaxRequestTimeout = 5 * time.Minute
	MinSymptomWindow  = time.Hour
	MaxSymptomWindow  = 7 * 24 * time.Hour
)
