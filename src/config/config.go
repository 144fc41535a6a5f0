// Package config provides configuration management for jenkins-monitor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultJenkinsURL matches the service name used by the compose deployment.
	DefaultJenkinsURL = "http://jenkins:8080"

	// DefaultPort is the HTTP listen port for the dashboard API.
	DefaultPort = "3000"

	// DefaultTimeout bounds every outbound Jenkins call.
	DefaultTimeout = 5 * time.Second

	maxTimeout = 5 * time.Second
)

// Config holds the application configuration.
type Config struct {
	// JenkinsURL is the base URL of the Jenkins controller, without a trailing slash.
	JenkinsURL string
	// JenkinsUser and JenkinsToken authenticate against the Jenkins REST API.
	JenkinsUser  string
	JenkinsToken string

	// Port is the dashboard API listen port.
	Port string
	// JWTSecret signs and verifies dashboard access tokens.
	JWTSecret string

	// RedpandaBrokers enables the distributed failure-event broker when set.
	RedpandaBrokers []string

	// Timeout is the upper bound for a single Jenkins request.
	Timeout time.Duration

	Debug bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	user := os.Getenv("JENKINS_USER")
	if user == "" {
		return nil, fmt.Errorf("JENKINS_USER environment variable is required")
	}
	token := os.Getenv("JENKINS_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("JENKINS_TOKEN environment variable is required")
	}

	cfg := &Config{
		JenkinsURL:   strings.TrimRight(getEnv("JENKINS_URL", DefaultJenkinsURL), "/"),
		JenkinsUser:  user,
		JenkinsToken: token,
		Port:         getEnv("PORT", DefaultPort),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		Timeout:      DefaultTimeout,
	}

	if brokers := os.Getenv("REDPANDA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.RedpandaBrokers = append(cfg.RedpandaBrokers, b)
			}
		}
	}

	if raw := os.Getenv("JENKINS_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JENKINS_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("JENKINS_TIMEOUT must be positive, got %s", d)
		}
		if d > maxTimeout {
			d = maxTimeout
		}
		cfg.Timeout = d
	}

	if raw := os.Getenv("MONITOR_DEBUG"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MONITOR_DEBUG %q: %w", raw, err)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// RequireJWTSecret reports an error when no token signing secret is configured.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

// JWTSecretFromEnv reads JWT_SECRET alone, for commands that never talk to Jenkins.
func JWTSecretFromEnv() (string, error) {
	cfg := Config{JWTSecret: os.Getenv("JWT_SECRET")}
	if err := cfg.RequireJWTSecret(); err != nil {
		return "", err
	}
	return cfg.JWTSecret, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
