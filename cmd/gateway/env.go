package main

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that supply flag defaults. A flag given on the
// command line wins over its variable.
const (
	envConfigPath  = "GATEWAY_CONFIG_PATH"
	envLogLevel    = "GATEWAY_LOG_LEVEL"
	envLogFormat   = "GATEWAY_LOG_FORMAT"
	envWatchConfig = "GATEWAY_WATCH_CONFIG"
)

// getEnvOrDefault returns the trimmed value of key, or defaultValue when it
// is unset or blank.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool reads key as a boolean. Besides the strconv forms, yes/no and
// on/off are accepted. Anything unrecognised keeps defaultValue.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(getEnvOrDefault(key, ""))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}
