package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape --config points at. Every field except
// GrantSize also has a matching command flag; a flag set explicitly on the
// command line wins over the config file. GrantSize is parsed but no
// subcommand reads it: the server always grants server.DefaultGrantSize keys.
type Config struct {
	DataDir     string `yaml:"dataDir"`
	ListenAddr  string `yaml:"listenAddr"`
	ServerAddr  string `yaml:"serverAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
	GrantSize   uint64 `yaml:"grantSize"`
}

func defaultConfig() Config {
	return Config{
		DataDir:     "./atelier-demo-data",
		ListenAddr:  "127.0.0.1:7420",
		ServerAddr:  "127.0.0.1:7420",
		MetricsAddr: "127.0.0.1:9090",
		GrantSize:   512,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
