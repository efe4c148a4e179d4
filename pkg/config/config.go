package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Embeddings EmbeddingsConfig
	Cache      CacheConfig
	Questions  QuestionsConfig
	Scoring    ScoringConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Scraper    ScraperConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          int
	WriteTimeout         int
	BodyLimit            int
	MaxRequestsPerMinute int
}

type EmbeddingsConfig struct {
	APIKey          string
	Model           string
	Dimension       int
	TimeoutSec      int
	BatchTimeoutSec int
	MaxBatchSize    int
	Retry           RetryConfig
}

// RetryConfig is exposed in configuration because the right values depend on
// the deployed provider's SLA.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelayMS int
	MaxDelayMS     int
	Multiplier     float64
}

type CacheConfig struct {
	Path string
}

type QuestionsConfig struct {
	Path string
}

type ScoringConfig struct {
	SemanticWeight     float64
	KeywordWeight      float64
	ExcellentThreshold float64
	GoodThreshold      float64
	PartialThreshold   float64
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type ScraperConfig struct {
	TimeoutSec  int
	MaxKeywords int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/prepai")

	viper.SetEnvPrefix("PREPAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.maxRequestsPerMinute", 60)

	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.dimension", 1536)
	viper.SetDefault("embeddings.timeoutSec", 15)
	viper.SetDefault("embeddings.batchTimeoutSec", 30)
	viper.SetDefault("embeddings.maxBatchSize", 100)
	viper.SetDefault("embeddings.retry.maxAttempts", 3)
	viper.SetDefault("embeddings.retry.initialDelayMS", 1000)
	viper.SetDefault("embeddings.retry.maxDelayMS", 8000)
	viper.SetDefault("embeddings.retry.multiplier", 2.0)

	viper.SetDefault("cache.path", "./data/embedding-cache.json")

	viper.SetDefault("questions.path", "./data/questions.json")

	viper.SetDefault("scoring.semanticWeight", 0.7)
	viper.SetDefault("scoring.keywordWeight", 0.3)
	viper.SetDefault("scoring.excellentThreshold", 0.85)
	viper.SetDefault("scoring.goodThreshold", 0.70)
	viper.SetDefault("scoring.partialThreshold", 0.50)

	viper.SetDefault("sqlite.path", "./data/interview.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 900)

	viper.SetDefault("scraper.timeoutSec", 10)
	viper.SetDefault("scraper.maxKeywords", 15)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
