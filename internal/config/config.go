package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"choma/internal/service/calculator"
)

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Log     LogConfig     `toml:"log"`
	Storage StorageConfig `toml:"storage"`
	Session SessionConfig `toml:"session"`
	Submit  SubmitConfig  `toml:"submit"`
	Pricing PricingConfig `toml:"pricing"`
	Import  ImportConfig  `toml:"import"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Env   string `toml:"env"` // production / development
	Level string `toml:"level"`
}

// StorageConfig 餐品存储
type StorageConfig struct {
	Driver   string `toml:"driver"` // sqlite / mongo
	SQLite   string `toml:"sqlite_file"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// SessionConfig 待确认批次暂存
type SessionConfig struct {
	Driver     string `toml:"driver"` // memory / redis
	RedisURL   string `toml:"redis_url"`
	TTLMinutes int    `toml:"ttl_minutes"`
}

// SubmitConfig 批量提交目标
type SubmitConfig struct {
	Mode           string  `toml:"mode"` // local / remote
	Endpoint       string  `toml:"endpoint"`
	Token          string  `toml:"token"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	Burst          int     `toml:"burst"`
}

// PricingConfig 成本模型参数
type PricingConfig struct {
	Version           string  `toml:"version"`
	GasCostPerHour    float64 `toml:"gas_cost_per_hour"`
	LabourCostPerHour float64 `toml:"labour_cost_per_hour"`
	UtensilLow        float64 `toml:"utensil_low"`
	UtensilMedium     float64 `toml:"utensil_medium"`
	UtensilHigh       float64 `toml:"utensil_high"`
	MultiplierLow     float64 `toml:"multiplier_low"`
	MultiplierMedium  float64 `toml:"multiplier_medium"`
	MultiplierHigh    float64 `toml:"multiplier_high"`
	ProfitRate        float64 `toml:"profit_rate"`
	LowMaxMinutes     float64 `toml:"low_max_minutes"`
	MediumMaxMinutes  float64 `toml:"medium_max_minutes"`
}

// ImportConfig 上传限制与模板
type ImportConfig struct {
	MaxUploadMB  int `toml:"max_upload_mb"`
	TemplateRows int `toml:"template_rows"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	m := calculator.DefaultCostModel()
	return &AppConfig{
		Server: ServerConfig{Port: 20262},
		Data:   DataConfig{DataDir: "data"},
		Log:    LogConfig{Env: "development", Level: "info"},
		Storage: StorageConfig{
			Driver:  "sqlite",
			SQLite:  "choma.db",
			MongoDB: "choma",
		},
		Session: SessionConfig{Driver: "memory", TTLMinutes: 30},
		Submit: SubmitConfig{
			Mode:           "local",
			TimeoutSeconds: 30,
			RatePerSecond:  2,
			Burst:          1,
		},
		Pricing: PricingConfig{
			Version:           m.Version,
			GasCostPerHour:    m.GasCostPerHour,
			LabourCostPerHour: m.LabourCostPerHour,
			UtensilLow:        m.UtensilLow,
			UtensilMedium:     m.UtensilMedium,
			UtensilHigh:       m.UtensilHigh,
			MultiplierLow:     m.MultiplierLow,
			MultiplierMedium:  m.MultiplierMedium,
			MultiplierHigh:    m.MultiplierHigh,
			ProfitRate:        m.ProfitRate,
			LowMaxMinutes:     m.LowMaxMinutes,
			MediumMaxMinutes:  m.MediumMaxMinutes,
		},
		Import: ImportConfig{MaxUploadMB: 10, TemplateRows: 3},
	}
}

// CostModel 转为计算引擎参数
func (p PricingConfig) CostModel() calculator.CostModel {
	return calculator.CostModel{
		Version:           p.Version,
		GasCostPerHour:    p.GasCostPerHour,
		LabourCostPerHour: p.LabourCostPerHour,
		UtensilLow:        p.UtensilLow,
		UtensilMedium:     p.UtensilMedium,
		UtensilHigh:       p.UtensilHigh,
		MultiplierLow:     p.MultiplierLow,
		MultiplierMedium:  p.MultiplierMedium,
		MultiplierHigh:    p.MultiplierHigh,
		ProfitRate:        p.ProfitRate,
		LowMaxMinutes:     p.LowMaxMinutes,
		MediumMaxMinutes:  p.MediumMaxMinutes,
	}
}

// TTL 暂存有效期
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Timeout 提交超时
func (s SubmitConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MaxUploadBytes 上传大小上限
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate 配置合法性检查
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required when storage.driver = \"mongo\"")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required when session.driver = \"redis\"")
		}
	default:
		return fmt.Errorf("unknown session.driver %q", c.Session.Driver)
	}

	switch c.Submit.Mode {
	case "local":
	case "remote":
		if c.Submit.Endpoint == "" {
			return errors.New("submit.endpoint is required when submit.mode = \"remote\"")
		}
	default:
		return fmt.Errorf("unknown submit.mode %q", c.Submit.Mode)
	}

	if err := c.Pricing.CostModel().Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}
	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func configDir() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		return "."
	}
	return exeDir
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigFrom(configDir())
}

// LoadConfigFrom 从指定目录加载：默认值 <- config.toml <- .env <- CHOMA_* 环境变量
func LoadConfigFrom(dir string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: filepath.Join(dir, "config.toml")}
	config := DefaultConfig()

	data, err := os.ReadFile(info.Path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", info.Path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, info, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

func applyEnv(c *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("CHOMA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHOMA_PORT %q: %w", v, err)
		}
		c.Server.Port = port
		info.PortSpecified = true
	}
	strOverrides := []struct {
		env string
		dst *string
	}{
		{"CHOMA_ENV", &c.Log.Env},
		{"CHOMA_LOG_LEVEL", &c.Log.Level},
		{"CHOMA_STORAGE_DRIVER", &c.Storage.Driver},
		{"CHOMA_MONGO_URI", &c.Storage.MongoURI},
		{"CHOMA_MONGO_DB", &c.Storage.MongoDB},
		{"CHOMA_SESSION_DRIVER", &c.Session.Driver},
		{"CHOMA_REDIS_URL", &c.Session.RedisURL},
		{"CHOMA_SUBMIT_MODE", &c.Submit.Mode},
		{"CHOMA_SUBMIT_ENDPOINT", &c.Submit.Endpoint},
		{"CHOMA_SUBMIT_TOKEN", &c.Submit.Token},
	}
	for _, o := range strOverrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	return nil
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	return SaveConfigTo(configDir(), config)
}

// SaveConfigTo 保存配置到指定目录
func SaveConfigTo(dir string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// EnsureDataDir 确保数据目录存在；相对路径以可执行文件目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(configDir(), dataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}
