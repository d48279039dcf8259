package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	Secret     string        `mapstructure:"secret"`
	RelayURL   string        `mapstructure:"relay_url"`
	StunURL    string        `mapstructure:"stun_url"`
	ChatPoll   time.Duration `mapstructure:"chat_poll"`
	RosterPoll time.Duration `mapstructure:"roster_poll"`

	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`

	CameraAudioPort int `mapstructure:"camera_audio_port"`
	CameraVideoPort int `mapstructure:"camera_video_port"`
	ScreenVideoPort int `mapstructure:"screen_video_port"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("relay_url", "ws://localhost:9090/ws/signal")
	v.SetDefault("stun_url", "stun:stun.l.google.com:19302")
	v.SetDefault("chat_poll", "1s")
	v.SetDefault("roster_poll", "3s")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "huddle")
	v.SetDefault("camera_audio_port", 4000)
	v.SetDefault("camera_video_port", 4002)
	v.SetDefault("screen_video_port", 4004)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
