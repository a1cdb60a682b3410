package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret       string
		Username        string
		PasswordHash    string
		TokenTTLMinutes int
	}
	Downloader struct {
		Name     string
		Host     string
		Username string
		Password string
	}
	Engine struct {
		Enabled            bool
		RunOnce            bool
		Tag                string
		HRDuration         float64
		HRRatio            float64
		HRDeadlineDays     int
		AdditionalSeedTime float64
		RetentionDays      int
		CheckPeriodMinutes int
		Notify             string
		Sites              []string
		SiteConfigPath     string
		RegistryPath       string
	}
	Backup struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		Profile   string
		KeepDays  int
	}
	Webhook struct {
		URL string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("SEEDVIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/seedvigil.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.passwordhash", "")
	v.SetDefault("auth.tokenttlminutes", 720)
	v.SetDefault("downloader.name", "")
	v.SetDefault("downloader.host", "http://127.0.0.1:8080")
	v.SetDefault("downloader.username", "")
	v.SetDefault("downloader.password", "")
	v.SetDefault("engine.enabled", false)
	v.SetDefault("engine.runonce", false)
	v.SetDefault("engine.tag", "H&R")
	v.SetDefault("engine.hrduration", 144)
	v.SetDefault("engine.hrratio", 99)
	v.SetDefault("engine.hrdeadlinedays", 14)
	v.SetDefault("engine.additionalseedtime", 24)
	v.SetDefault("engine.retentiondays", 7)
	v.SetDefault("engine.checkperiodminutes", 5)
	v.SetDefault("engine.notify", "all")
	v.SetDefault("engine.sites", []string{})
	v.SetDefault("engine.siteconfigpath", "data/site_config.yaml")
	v.SetDefault("engine.registrypath", "data/sites.yaml")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.keyprefix", "seedvigil-state")
	v.SetDefault("backup.region", "us-east-1")
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.profile", "")
	v.SetDefault("backup.keepdays", 30)
	v.SetDefault("webhook.url", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
