package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-cid-parser/cid"
	"go-cid-parser/logging"
	redis "go-cid-parser/redis"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// Path to an external reference table; the embedded one is used when empty
	DataPath      string `json:"data_path,omitempty"`
	TableEncoding string `json:"table_encoding,omitempty"`
	StrictDates   bool   `json:"strict_dates,omitempty"`

	JwtPrivateKeyPath        string `json:"jwt_private_key_path"`
	IssuerId                 string `json:"issuer_id"`
	AttestationValidityHours uint   `json:"attestation_validity_hours,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		slog.Error("please provide a config path using the --config flag")
		os.Exit(1)
	}

	// .env is optional, used to keep the redis password out of config.json
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment overrides from .env")
	}

	slog.Info("using config", "path", *configPath)

	config, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config file", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(config.LogLevel, config.LogFormat)

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.RedisConfig.Password = password
		config.RedisSentinelConfig.Password = password
	}

	slog.Info("hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	parser, err := createParser(&config)
	if err != nil {
		slog.Error("failed to load region reference table", "error", err)
		os.Exit(1)
	}

	validity := 24 * time.Hour
	if config.AttestationValidityHours > 0 {
		validity = time.Duration(config.AttestationValidityHours) * time.Hour
	}

	jwtCreator, err := NewAttestationJwtCreator(config.JwtPrivateKeyPath, config.IssuerId, validity)
	if err != nil {
		slog.Error("failed to instantiate jwt creator", "error", err)
		os.Exit(1)
	}

	tokenStorage, resultCache, err := createStorage(&config)
	if err != nil {
		slog.Error("failed to instantiate storage", "error", err)
		os.Exit(1)
	}

	serverState := ServerState{
		parser:       parser,
		tokenStorage: tokenStorage,
		resultCache:  resultCache,
		jwtCreator:   jwtCreator,
		converter:    IdentityDataConverterImpl{},
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func createParser(config *Config) (*cid.Parser, error) {
	var opts []cid.Option
	if config.TableEncoding == "gbk" {
		opts = append(opts, cid.WithGBK())
	}
	if config.StrictDates {
		opts = append(opts, cid.WithStrictDates())
	}

	if config.DataPath != "" {
		slog.Info("Using external region reference table", "path", config.DataPath)
		return cid.NewParserFromFile(config.DataPath, opts...)
	}
	slog.Info("Using embedded region reference table")
	return cid.NewParser(opts...)
}

func createStorage(config *Config) (TokenStorage, ResultCache, error) {
	if config.StorageType == "redis" {
		slog.Info("Using redis storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		namespace := config.RedisConfig.Namespace
		return NewRedisTokenStorage(client, namespace), NewRedisResultCache(client, namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		slog.Info("Using redis sentinel storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, nil, err
		}
		namespace := config.RedisSentinelConfig.Namespace
		return NewRedisTokenStorage(client, namespace), NewRedisResultCache(client, namespace), nil
	}
	if config.StorageType == "memory" {
		slog.Info("Using in memory storage")
		return NewInMemoryTokenStorage(), NewInMemoryResultCache(), nil
	}
	return nil, nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
