package tests

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/config"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ExternalDependenciesSuite loads provider credentials from a dotenv file
// before the live suites run. SETTINGS_FILE wins; otherwise the first of
// $TRANSCRIBE_CONFIG_DIR/config.env and $HOME/.env that exists is used.
type ExternalDependenciesSuite struct {
	suite.Suite
	settingsFile string
}

func (s *ExternalDependenciesSuite) SetupSuite() {
	if explicit := strings.TrimSpace(os.Getenv("SETTINGS_FILE")); explicit != "" {
		s.settingsFile = explicit
		require.NoError(s.T(), godotenv.Overload(explicit))
		return
	}

	for _, candidate := range defaultSettingsFiles() {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		require.NoError(s.T(), err)

		s.settingsFile = candidate
		require.NoError(s.T(), godotenv.Overload(candidate))
		return
	}
}

func (s *ExternalDependenciesSuite) SettingsFile() string {
	return s.settingsFile
}

func defaultSettingsFiles() []string {
	var files []string
	if dir := strings.TrimSpace(os.Getenv("TRANSCRIBE_CONFIG_DIR")); dir != "" {
		files = append(files, filepath.Join(dir, config.EnvFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".env"))
	}
	return files
}
