package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/errors"
)

// GlobalConfigDir returns the path to the global fez directory.
// If FEZ_HOME is set it is used as is; otherwise this is ~/.fez.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	if home := os.Getenv("FEZ_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.FezHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration directory.
// This is always .fez relative to the project root.
func ProjectConfigDir() string {
	return constants.FezHome
}

// GlobalConfigPath returns the full path to the global configuration file.
// This is typically ~/.fez/config.yaml on Unix systems.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
// This is always .fez/config.yaml relative to the project root.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.ConfigFileName)
}
