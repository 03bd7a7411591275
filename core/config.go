package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	General GeneralConfig
	Token   TokenConfig
	Storage StorageConfig
}

type GeneralConfig struct {
	LogFile  string
	LogLevel string
}

type TokenConfig struct {
	Label         string
	MaxAttributes int
	LiveClock     bool
}

type StorageConfig struct {
	DatabaseType string
	Path         string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.logfile", "")
	v.SetDefault("general.loglevel", "info")
	v.SetDefault("token.label", "TCHSM")
	v.SetDefault("token.maxattributes", 64)
	v.SetDefault("token.liveclock", false)
	v.SetDefault("storage.databasetype", "sqlite3")
	v.SetDefault("storage.path", "hwtoken.db")
}

// GetConfig reads the configuration. An explicit path is read as is,
// otherwise a file named config is searched in /etc/hwtoken/, $HOME/.hwtoken
// and the working directory. A missing config file is not an error.
func GetConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("hwtoken")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/hwtoken/")
		v.AddConfigPath("$HOME/.hwtoken")
		v.AddConfigPath("./")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %v", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("parse config: %v", err)
	}
	if conf.Token.MaxAttributes < 0 {
		return nil, fmt.Errorf("token.maxattributes must not be negative")
	}
	return &conf, nil
}
