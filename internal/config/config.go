package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const envPrefix = "BOUNTY"

type Config struct {
	Port        int           `mapstructure:"port"`
	Host        string        `mapstructure:"host"`
	Home        string        `mapstructure:"home"`
	Environment string        `mapstructure:"environment"`
	AssetsDir   string        `mapstructure:"assets_dir"`
	TempDir     string        `mapstructure:"temp_dir"`
	PublicDir   string        `mapstructure:"public_dir"`
	DisableAuth bool          `mapstructure:"disable_auth"`
	Filesystem  string        `mapstructure:"filesystem_type"`
	DB          *DBConfig     `mapstructure:"db"`
	S3          *S3Config     `mapstructure:"s3"`
	Pulsar      *PulsarConfig `mapstructure:"pulsar"`
	OpenAI      *OpenAIConfig `mapstructure:"openai"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicUrl   string `mapstructure:"public_url"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type PulsarConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

var config *Config

// LoadEnvAndConfigFiles locates the bounty home directory, loads the .env
// file if one exists there, and reads config.yaml into viper.
func LoadEnvAndConfigFiles() error {
	home, err := getHomeDir()
	if err != nil {
		return err
	}

	if err := createHomeDirs(home); err != nil {
		return err
	}

	viper.Set("home", home)
	viper.SetDefault("assets_dir", filepath.Join(home, "assets"))
	viper.SetDefault("temp_dir", filepath.Join(home, "temp"))

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(home, ".env")
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	viper.AutomaticEnv()

	configFile := viper.GetString("config_file")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(home)
	}

	return LoadConfig(false)
}

func LoadConfig(reload bool) error {
	if config != nil && !reload {
		return fmt.Errorf("config already loaded")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config: %w", err)
		}
	}

	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	return nil
}

func GetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

func MustGetConfig() *Config {
	return GetConfig()
}

func IsLoaded() bool {
	return config != nil
}

// Returns the bounty home directory path. Resolution order:
// 1. The `home` flag from viper.
// 2. The BOUNTY_HOME environment variable.
// 3. The default home directory.
func getHomeDir() (string, error) {
	home := viper.GetString("home")
	if home == "" {
		home = os.Getenv("BOUNTY_HOME")
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve user home directory: %w", err)
		}
		home = filepath.Join(userHome, DefaultHomeDirName)
	}

	return home, nil
}

func createHomeDirs(home string) error {
	subdirs := []string{"assets", "temp"}
	if err := os.MkdirAll(home, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(home, subdir), os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return nil
}
