package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Search   SearchConfig
	Learning LearningConfig
	Quota    QuotaConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled          bool
	Host             string
	Port             int
	Password         string
	DB               int
	AnswerTTLMinutes int
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type SearchConfig struct {
	MinScore            int
	MaxResults          int
	IndexTTLSeconds     int
	SubstringScore      int
	SignificantBonus    int
	SignificantFraction float64
	ExactWordScore      int
	WordPrefixScore     int
	KeywordPrefixScore  int
	FuzzyScore          int
	FuzzyThreshold      int
	ArticleTitleScore   int
}

type LearningConfig struct {
	MinBoostCount    int
	BoostPerMatch    int
	MaxBoost         int
	FallbackBase     int
	FallbackLimit    int
	RetentionDays    int
	LogRetentionDays int
}

type QuotaConfig struct {
	DailyLimit   int
	PremiumUsers []string
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
	viper.AddConfigPath("/etc/law-bot")

	viper.SetEnvPrefix("LAW_BOT")
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

	viper.SetDefault("sqlite.path", "./data/lawbot.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.answerTTLMinutes", 60)

	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxTokens", 1200)
	viper.SetDefault("llm.timeoutSec", 90)

	viper.SetDefault("search.minScore", 30)
	viper.SetDefault("search.maxResults", 5)
	viper.SetDefault("search.indexTTLSeconds", 300)
	viper.SetDefault("search.substringScore", 50)
	viper.SetDefault("search.significantBonus", 20)
	viper.SetDefault("search.significantFraction", 0.2)
	viper.SetDefault("search.exactWordScore", 45)
	viper.SetDefault("search.wordPrefixScore", 35)
	viper.SetDefault("search.keywordPrefixScore", 25)
	viper.SetDefault("search.fuzzyScore", 20)
	viper.SetDefault("search.fuzzyThreshold", 70)
	viper.SetDefault("search.articleTitleScore", 15)

	viper.SetDefault("learning.minBoostCount", 2)
	viper.SetDefault("learning.boostPerMatch", 5)
	viper.SetDefault("learning.maxBoost", 25)
	viper.SetDefault("learning.fallbackBase", 30)
	viper.SetDefault("learning.fallbackLimit", 3)
	viper.SetDefault("learning.retentionDays", 180)
	viper.SetDefault("learning.logRetentionDays", 90)

	viper.SetDefault("quota.dailyLimit", 5)
	viper.SetDefault("quota.premiumUsers", []string{})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
