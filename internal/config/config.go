package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. All values come from the
// environment (optionally via a .env file loaded in main).
type Config struct {
	ListenAddr    string `envconfig:"ANNOTATION_LISTEN_ADDR" default:":8080"`
	GinMode       string `envconfig:"ANNOTATION_GIN_MODE" default:"debug"`
	SessionSecret string `envconfig:"ANNOTATION_SESSION_SECRET" default:"default-secret-key-change-me"`

	// Data directories. CropsDir holds one subfolder of images per
	// document; GroundTruthDir holds one <folder>.txt label file per
	// subfolder; AnnotationsDir holds users.json and the history files.
	CropsDir       string `envconfig:"ANNOTATION_CROPS_DIR" default:"sorted_crops"`
	GroundTruthDir string `envconfig:"ANNOTATION_GROUND_TRUTH_DIR" default:"ground_truth"`
	AnnotationsDir string `envconfig:"ANNOTATION_DATA_DIR" default:"annotations"`

	// AdminCreationKey gates registration of admin-role accounts.
	AdminCreationKey string `envconfig:"ANNOTATION_ADMIN_CREATION_KEY" default:""`

	Password PasswordPolicy

	LogLevel  string `envconfig:"ANNOTATION_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"ANNOTATION_LOG_FORMAT" default:"console"`
}

// PasswordPolicy is the configurable password acceptance rule set.
type PasswordPolicy struct {
	MinLength    int  `envconfig:"ANNOTATION_PASSWORD_MIN_LENGTH" default:"8"`
	RequireUpper bool `envconfig:"ANNOTATION_PASSWORD_REQUIRE_UPPER" default:"true"`
	RequireDigit bool `envconfig:"ANNOTATION_PASSWORD_REQUIRE_DIGIT" default:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("annotation", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
