package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Judge struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Audio struct {
	SampleRate       int           `mapstructure:"sample_rate"`
	Bins             int           `mapstructure:"bins"`
	Sensitivity      float64       `mapstructure:"sensitivity"`
	CalibrationTicks int           `mapstructure:"calibration_ticks"`
	EmitEvery        int           `mapstructure:"emit_every"`
	History          int           `mapstructure:"history"`
	SpeakingCredit   time.Duration `mapstructure:"speaking_credit"`
}

type Session struct {
	CountdownSeconds int      `mapstructure:"countdown_seconds"`
	TimeLimitSeconds int      `mapstructure:"time_limit_seconds"`
	Confidence       float64  `mapstructure:"confidence"`
	Questions        []string `mapstructure:"questions"`
}

type Server struct {
	Addr         string `mapstructure:"addr"`
	StreamBuffer int    `mapstructure:"stream_buffer"`
}

type Root struct {
	Pipeline struct {
		Name      string `mapstructure:"name"`
		Version   string `mapstructure:"version"`
		LogLvl    string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"pipeline"`
	Judge   Judge   `mapstructure:"judge"`
	Audio   Audio   `mapstructure:"audio"`
	Session Session `mapstructure:"session"`
	Server  Server  `mapstructure:"server"`
	Paths   struct {
		Outputs string `mapstructure:"outputs"`
	} `mapstructure:"paths"`
}

// DefaultQuestions is the built-in question bank.
var DefaultQuestions = []string{
	"Please introduce yourself.",
	"Tell us about your most memorable experience.",
	"Describe your greatest strengths.",
	"Imagine yourself five years from now.",
	"Talk about a hobby you enjoy.",
	"What is the most important value in your life?",
	"Describe a time you overcame a difficulty.",
	"What is your dream?",
	"Who are you most grateful to, and why?",
	"Imagine yourself ten years from now.",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "interview-coach")
	v.SetDefault("pipeline.version", "dev")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")

	v.SetDefault("judge.url", "")
	v.SetDefault("judge.timeout", 15*time.Second)

	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.bins", 1024)
	v.SetDefault("audio.sensitivity", 0.35)
	v.SetDefault("audio.calibration_ticks", 60)
	v.SetDefault("audio.emit_every", 10)
	v.SetDefault("audio.history", 100)
	v.SetDefault("audio.speaking_credit", 100*time.Millisecond)

	v.SetDefault("session.countdown_seconds", 5)
	v.SetDefault("session.time_limit_seconds", 60)
	v.SetDefault("session.confidence", 0.8)
	v.SetDefault("session.questions", DefaultQuestions)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stream_buffer", 64)

	v.SetDefault("paths.outputs", "")
}

// Load reads .env (if any), then config/<CONFIG_ENV>/config.yaml or
// ./config.yaml, then COACH_* environment overrides. A missing file is not an
// error; defaults cover every key.
func Load() (*Root, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join("config", env))
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logrus.WithField("env", env).Debug("no config file found, using defaults")
	}
	return decode(v)
}

// LoadFile reads one explicit YAML file on top of the defaults.
func LoadFile(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Root, error) {
	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Session.Questions) == 0 {
		cfg.Session.Questions = DefaultQuestions
	}
	return &cfg, nil
}

// LoadQuestions reads a YAML list of questions, either a bare sequence or a
// mapping with a "questions" key.
func LoadQuestions(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := yaml.Unmarshal(b, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	var doc struct {
		Questions []string `yaml:"questions"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("questions decode: %w", err)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("questions %s: empty", path)
	}
	return doc.Questions, nil
}

// NewLogger builds the process logger from the pipeline section.
func (c *Root) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if strings.EqualFold(c.Pipeline.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
