package config

import (
	"log"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cron     CronConfig     `yaml:"cron"`
	Fetch    FetchConfig    `yaml:"fetch"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
	Mode string `yaml:"mode" env:"GIN_MODE"` // debug, release
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DB_PATH"`
}

type CronConfig struct {
	CheckInterval string `yaml:"check_interval" env:"CRON_CHECK_INTERVAL"` // 到期Feed检查间隔
}

type FetchConfig struct {
	TimeoutSeconds         int    `yaml:"timeout_seconds" env:"FETCH_TIMEOUT_SECONDS"`           // 单次HTTP请求超时
	IndexMaxEntries        int    `yaml:"index_max_entries" env:"INDEX_MAX_ENTRIES"`             // 滚动索引上限
	DefaultIntervalMinutes int    `yaml:"default_interval_minutes" env:"DEFAULT_FETCH_INTERVAL"` // 默认抓取间隔(分钟)
	ProxyURL               string `yaml:"proxy_url" env:"HTTP_PROXY"`                            // 可选的本地代理
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	// 默认配置
	cfg := &Config{
		Server: ServerConfig{
			Port: "3000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Path: "data/reader.db",
		},
		Cron: CronConfig{
			CheckInterval: "* * * * *", // 每分钟检查一次到期Feed
		},
		Fetch: FetchConfig{
			TimeoutSeconds:         10,
			IndexMaxEntries:        1000,
			DefaultIntervalMinutes: 60,
		},
	}

	// 如果配置文件存在,读取配置
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else {
		log.Printf("配置文件不存在: %s, 使用默认配置", configPath)
	}

	// 环境变量覆盖配置
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetServerAddress 获取服务器监听地址
func (c *Config) GetServerAddress() string {
	// 如果端口是纯数字,加上冒号前缀
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}
