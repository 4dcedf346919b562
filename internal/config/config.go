// Copyright 2025 Alexander Alten (novatechflow), NovaTechflow (novatechflow.com).
// This project is supported and financed by Scalytics, Inc. (www.scalytics.io).
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/novatechflow/bagkit/pkg/bag"
	"github.com/novatechflow/bagkit/pkg/storage"
)

// Config is the bag CLI configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Reader  ReaderConfig  `yaml:"reader"`
	S3      S3Config      `yaml:"s3"`
	Replay  ReplayConfig  `yaml:"replay"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ReaderConfig struct {
	Strategy        string `yaml:"strategy"`
	StrictChunkInfo bool   `yaml:"strict_chunk_info"`
	RetainChunks    bool   `yaml:"retain_chunks"`
	CacheBytes      int    `yaml:"cache_bytes"`
	BlockSize       int    `yaml:"block_size"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

type ReplayConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
	ClientID    string   `yaml:"client_id"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "warn"},
		Reader: ReaderConfig{
			Strategy:   "auto",
			CacheBytes: bag.DefaultCacheBytes,
			BlockSize:  storage.DefaultBlockSize,
		},
		S3: S3Config{Region: "us-east-1"},
		Replay: ReplayConfig{
			Brokers:     []string{"localhost:9092"},
			TopicPrefix: "bag.",
			ClientID:    "bagkit-replay",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies BAGKIT_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Log.Level = envOrDefault("BAGKIT_LOG_LEVEL", c.Log.Level)
	c.Reader.Strategy = envOrDefault("BAGKIT_READ_STRATEGY", c.Reader.Strategy)
	c.Reader.StrictChunkInfo = parseEnvBool("BAGKIT_STRICT_CHUNK_INFO", c.Reader.StrictChunkInfo)
	c.Reader.RetainChunks = parseEnvBool("BAGKIT_RETAIN_CHUNKS", c.Reader.RetainChunks)
	c.Reader.CacheBytes = parseEnvInt("BAGKIT_CACHE_BYTES", c.Reader.CacheBytes)
	c.Reader.BlockSize = parseEnvInt("BAGKIT_S3_BLOCK_SIZE", c.Reader.BlockSize)
	c.S3.Region = envOrDefault("BAGKIT_S3_REGION", c.S3.Region)
	c.S3.Endpoint = envOrDefault("BAGKIT_S3_ENDPOINT", c.S3.Endpoint)
	c.S3.PathStyle = parseEnvBool("BAGKIT_S3_PATH_STYLE", c.S3.PathStyle)
	c.S3.AccessKeyID = envOrDefault("BAGKIT_S3_ACCESS_KEY", c.S3.AccessKeyID)
	c.S3.SecretAccessKey = envOrDefault("BAGKIT_S3_SECRET_KEY", c.S3.SecretAccessKey)
	c.S3.SessionToken = envOrDefault("BAGKIT_S3_SESSION_TOKEN", c.S3.SessionToken)
	if brokers := envOrDefault("BAGKIT_REPLAY_BROKERS", ""); brokers != "" {
		c.Replay.Brokers = splitList(brokers)
	}
	c.Replay.TopicPrefix = envOrDefault("BAGKIT_REPLAY_TOPIC_PREFIX", c.Replay.TopicPrefix)
	c.Replay.ClientID = envOrDefault("BAGKIT_REPLAY_CLIENT_ID", c.Replay.ClientID)
	c.Metrics.Addr = envOrDefault("BAGKIT_METRICS_ADDR", c.Metrics.Addr)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := bag.ParseStrategy(c.Reader.Strategy); err != nil {
		return fmt.Errorf("reader.strategy: %w", err)
	}
	if c.Reader.CacheBytes <= 0 {
		return fmt.Errorf("reader.cache_bytes must be positive, got %d", c.Reader.CacheBytes)
	}
	if c.Reader.BlockSize <= 0 {
		return fmt.Errorf("reader.block_size must be positive, got %d", c.Reader.BlockSize)
	}
	if len(c.Replay.Brokers) == 0 {
		return errors.New("replay.brokers is required")
	}
	return nil
}

// BagOptions converts the reader section into bag.Options.
func (c Config) BagOptions(logger *slog.Logger) bag.Options {
	strategy, _ := bag.ParseStrategy(c.Reader.Strategy)
	return bag.Options{
		Strategy:        strategy,
		StrictChunkInfo: c.Reader.StrictChunkInfo,
		RetainChunks:    c.Reader.RetainChunks,
		CacheBytes:      c.Reader.CacheBytes,
		Logger:          logger,
	}
}

// S3Store returns the storage settings for bucket.
func (c Config) S3Store(bucket string) storage.S3Config {
	return storage.S3Config{
		Bucket:          bucket,
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		ForcePathStyle:  c.S3.PathStyle,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		SessionToken:    c.S3.SessionToken,
	}
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(name, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		return val
	}
	return fallback
}

func parseEnvInt(name string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseEnvBool(name string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
