package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the first .env file found in the working directory or up to two
// levels above it. Variables already set in the environment win. It returns the
// absolute path of the loaded file, or "" when none was found.
func LoadEnvFile() string {
	envPaths := []string{
		".env",       // current working directory (pods/containers)
		"../../.env", // running from bin/
	}

	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		grandParentDir := filepath.Dir(parentDir)

		envPaths = append(envPaths,
			filepath.Join(workDir, ".env"),
			filepath.Join(parentDir, ".env"),
			filepath.Join(grandParentDir, ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			absPath, _ := filepath.Abs(envPath)
			return absPath
		}
	}
	return ""
}
