package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/systems"
	"github.com/spf13/viper"
)

const (
	configName = "texstream"
	envPrefix  = "TEXSTREAM"
)

type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level  string `mapstructure:"level" default:"info"`
	Prefix string `mapstructure:"prefix" default:""`
}

type JobsConfig struct {
	// Workers is the number of loader goroutines.
	Workers   int `mapstructure:"workers" default:"4"`
	QueueSize int `mapstructure:"queue_size" default:"256"`
}

type TexturesConfig struct {
	// Compressed reports whether the compressed mip chain path is available.
	Compressed           bool   `mapstructure:"compressed" default:"true"`
	MaxDimension         uint32 `mapstructure:"max_dimension" default:"4096"`
	PowerOfTwo           bool   `mapstructure:"power_of_two" default:"false"`
	MaxConcurrentDecodes int64  `mapstructure:"max_concurrent_decodes" default:"4"`
	FlipY                bool   `mapstructure:"flip_y" default:"false"`
	StrictBarriers       bool   `mapstructure:"strict_barriers" default:"false"`
}

type AssetsConfig struct {
	Dir   string `mapstructure:"dir" default:"assets"`
	Watch bool   `mapstructure:"watch" default:"true"`
}

// Config holds all configuration of the engine.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Textures TexturesConfig `mapstructure:"textures"`
	Assets   AssetsConfig   `mapstructure:"assets"`
}

// LoadConfig reads texstream.toml from path if present, then applies .env
// and TEXSTREAM_* environment overrides (e.g. TEXSTREAM_JOBS_WORKERS).
func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s config: %w", configName, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultConfig is the configuration used without file or environment.
func DefaultConfig() *Config {
	v := viper.New()
	bindValues(v, Config{}, "")
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(err)
	}
	return &config
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize < 0 {
		return fmt.Errorf("jobs.queue_size must not be negative, got %d", c.Jobs.QueueSize)
	}
	if c.Textures.MaxConcurrentDecodes <= 0 {
		return fmt.Errorf("textures.max_concurrent_decodes must be positive, got %d", c.Textures.MaxConcurrentDecodes)
	}
	if c.Assets.Dir == "" {
		return errors.New("assets.dir is required")
	}
	return nil
}

func (c *Config) systemManagerConfig() *systems.SystemManagerConfig {
	return &systems.SystemManagerConfig{
		Workers:              c.Jobs.Workers,
		QueueSize:            c.Jobs.QueueSize,
		CompressedTextures:   c.Textures.Compressed,
		MaxTextureDimension:  c.Textures.MaxDimension,
		PowerOfTwoTextures:   c.Textures.PowerOfTwo,
		MaxConcurrentDecodes: c.Textures.MaxConcurrentDecodes,
		FlipY:                c.Textures.FlipY,
		AssetsDir:            c.Assets.Dir,
		WatchAssets:          c.Assets.Watch,
		StrictBarriers:       c.Textures.StrictBarriers,
	}
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
