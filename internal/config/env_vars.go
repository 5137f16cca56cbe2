package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	publicURLVar      = "PUBLIC_URL"
	storeURLVar       = "STORE_URL"
	storeKeyPrefixVar = "STORE_KEY_PREFIX"
	metricsAddrVar    = "METRICS_ADDR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go OAuth Proxy")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, "info"))
}

// GetPublicURL returns this service's externally visible base URL (e.g., "https://mcp.example.com").
// It is the token issuer and the base of every advertised endpoint.
func (EnvVars) GetPublicURL() string {
	return strings.TrimRight(GetEnv(publicURLVar, "http://localhost:8080"), "/")
}

// GetStoreURL returns a redis:// URL. Empty selects the in-memory store.
func (EnvVars) GetStoreURL() string {
	return GetEnv(storeURLVar, "")
}

func (EnvVars) GetStoreKeyPrefix() string {
	return GetEnv(storeKeyPrefixVar, "oauth:")
}

func (EnvVars) GetMetricsAddr() string {
	return GetEnv(metricsAddrVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
