package recorder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config содержит конфигурацию подсистемы записи. Значение передается явно
// при создании каждого рекордера (NewWithConfig) вместо глобального
// изменяемого состояния, так что в одном процессе могут сосуществовать
// рекордеры с разными политиками именования.
type Config struct {
	// TempNames включает временное расширение: пока запись идет, файл
	// называется <имя>.mjr.<TempExtension>, при закрытии переименовывается
	// в <имя>.mjr
	TempNames bool `mapstructure:"temp_names"`

	// TempExtension - расширение временных файлов (без точки)
	TempExtension string `mapstructure:"temp_extension"`

	// ProtectedFolders - список корней, запись внутрь которых запрещена
	ProtectedFolders []string `mapstructure:"protected_folders"`
}

// DefaultConfig возвращает конфигурацию по умолчанию: без временных имен,
// без защищенных папок.
func DefaultConfig() *Config {
	return &Config{
		TempNames:     false,
		TempExtension: "tmp",
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.TempNames && c.TempExtension == "" {
		return fmt.Errorf("temp_extension обязателен при temp_names=true")
	}
	if strings.HasPrefix(c.TempExtension, ".") {
		return fmt.Errorf("temp_extension указывается без точки: %q", c.TempExtension)
	}
	return nil
}

// LoadConfig загружает конфигурацию подсистемы записи из файла
// (yaml/toml/json, формат определяется расширением). Отсутствующие поля
// заполняются значениями по умолчанию.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetDefault("temp_names", false)
	v.SetDefault("temp_extension", "tmp")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", configFile, err)
	}
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", configFile, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// isFolderProtected проверяет, попадает ли путь внутрь одного из
// защищенных корней. Сравнение по компонентам пути после Clean.
func (c *Config) isFolderProtected(path string) bool {
	if len(c.ProtectedFolders) == 0 {
		return false
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		abs = filepath.Clean(path)
	}
	for _, root := range c.ProtectedFolders {
		if root == "" {
			continue
		}
		cleanRoot := filepath.Clean(root)
		if abs == cleanRoot || strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
