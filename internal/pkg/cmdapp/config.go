package cmdapp

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config keeps the service settings: yaml file from --config merged with
// environment overrides. Keys are read where the backends are built
var Config = viper.New()

// Log is the service logger, configured from the logger subtree of Config
var Log = logrus.New()

// DurationOrDefault reads duration setting, returns def if the value is not set or invalid
func DurationOrDefault(key string, def time.Duration) time.Duration {
	if !Config.IsSet(key) {
		return def
	}
	res := Config.GetDuration(key)
	if res <= 0 {
		Log.Warnf("Wrong duration value for %s: '%s'. Using %v", key, Config.GetString(key), def)
		return def
	}
	return res
}

// IntOrDefault reads int setting, returns def if the value is not set or not positive
func IntOrDefault(key string, def int) int {
	if !Config.IsSet(key) {
		return def
	}
	res := Config.GetInt(key)
	if res <= 0 {
		Log.Warnf("Wrong int value for %s: '%s'. Using %d", key, Config.GetString(key), def)
		return def
	}
	return res
}
