// Package conf 加载连接配置文件
package conf

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hatlonely/dbx/driver"
	"github.com/hatlonely/dbx/schema"
)

var validate = validator.New()

type Config struct {
	// Connections 连接配置列表
	Connections []driver.Connection `cfg:"connections" yaml:"connections"`

	// SchemaCache 表结构缓存配置
	SchemaCache *schema.ContextOptions `cfg:"schemaCache" yaml:"schemaCache"`
}

// LoadConfig 从 YAML 文件加载配置
//
// 缺少 id 的连接自动分配一个，方便手写配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config failed. path: %s", path)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.WithMessage(err, "unmarshal config failed")
	}

	for i := range config.Connections {
		if config.Connections[i].ID == "" {
			config.Connections[i].ID = uuid.NewString()
		}
	}

	for i := range config.Connections {
		if err := validate.Struct(&config.Connections[i]); err != nil {
			return nil, errors.WithMessagef(err, "invalid connection. name: %s", config.Connections[i].Name)
		}
	}

	return &config, nil
}
