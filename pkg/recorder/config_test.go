package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.False(t, config.TempNames)
	assert.Equal(t, "tmp", config.TempExtension)
	assert.Empty(t, config.ProtectedFolders)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "valid defaults",
			config: DefaultConfig(),
		},
		{
			name:   "temp names with extension",
			config: &Config{TempNames: true, TempExtension: "saving"},
		},
		{
			name:    "temp names without extension",
			config:  &Config{TempNames: true},
			wantErr: true,
		},
		{
			name:    "extension with dot",
			config:  &Config{TempExtension: ".tmp"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recorder.yaml")
	content := `
temp_names: true
temp_extension: saving
protected_folders:
  - /etc
  - /usr
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, config.TempNames)
	assert.Equal(t, "saving", config.TempExtension)
	assert.Equal(t, []string{"/etc", "/usr"}, config.ProtectedFolders)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recorder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, config.TempNames)
	assert.Equal(t, "tmp", config.TempExtension)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestIsFolderProtected(t *testing.T) {
	config := &Config{ProtectedFolders: []string{"/protected", "/var/secrets"}}

	assert.True(t, config.isFolderProtected("/protected/rec.mjr"))
	assert.True(t, config.isFolderProtected("/protected"))
	assert.True(t, config.isFolderProtected("/var/secrets/sub/rec.mjr"))
	assert.True(t, config.isFolderProtected("/protected/../protected/rec.mjr"))

	assert.False(t, config.isFolderProtected("/protected2/rec.mjr"))
	assert.False(t, config.isFolderProtected("/var/rec.mjr"))
	assert.False(t, (&Config{}).isFolderProtected("/protected/rec.mjr"))
}
