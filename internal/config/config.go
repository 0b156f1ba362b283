// Package config loads arogya settings from flags, an env file, an optional
// config file and the process environment.
package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendRemote  = "remote"
	BackendWhisper = "whisper"
	BackendGoogle  = "google"
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Models        ModelsConfig        `mapstructure:"models"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	TTS           TTSConfig           `mapstructure:"tts"`
	Output        OutputConfig        `mapstructure:"output"`
	Playback      PlaybackConfig      `mapstructure:"playback"`
	Welcome       WelcomeConfig       `mapstructure:"welcome"`
	Server        ServerConfig        `mapstructure:"server"`
	Proxy         string              `mapstructure:"proxy"`
	Log           LogConfig           `mapstructure:"log"`
}

// APIConfig points at the OpenAI-compatible endpoint serving chat and
// transcription models.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Key     string `mapstructure:"key"`
}

type ModelsConfig struct {
	Vision        string `mapstructure:"vision"`
	Text          string `mapstructure:"text"`
	Transcription string `mapstructure:"transcription"`
}

type TranscriptionConfig struct {
	Backend      string `mapstructure:"backend"`
	Language     string `mapstructure:"language"`
	WhisperModel string `mapstructure:"whisper_model"`
}

// TTSConfig selects the speech endpoint. Without an APIKey the API section's
// key and endpoint are used as a pair.
type TTSConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

type OutputConfig struct {
	Path string `mapstructure:"path"`
}

type PlaybackConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Builtin bool `mapstructure:"builtin"`
	Duck    bool `mapstructure:"duck"`
}

type WelcomeConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	Socket    string `mapstructure:"socket"`
	UploadDir string `mapstructure:"upload_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"api.base_url":                "https://api.groq.com/openai/v1/",
	"api.key":                     "",
	"models.vision":               "llama-3.2-11b-vision-preview",
	"models.text":                 "llama-3.2-11b-vision-preview",
	"models.transcription":        "whisper-large-v3",
	"transcription.backend":       BackendRemote,
	"transcription.language":      "en",
	"transcription.whisper_model": "models/ggml-base.en.bin",
	"tts.base_url":                "",
	"tts.api_key":                 "",
	"tts.model":                   "",
	"tts.voice":                   "",
	"output.path":                 "output/response.mp3",
	"playback.enabled":            true,
	"playback.builtin":            false,
	"playback.duck":               false,
	"welcome.path":                "welcome_message.mp3",
	"server.addr":                 ":7860",
	"server.socket":               "/tmp/arogya.sock",
	"server.upload_dir":           "uploads",
	"proxy":                       "",
	"log.level":                   "info",
}

// RegisterFlags adds the flags shared by every arogya command.
func RegisterFlags(fs *cli.FlagSet) {
	fs.StringP("env", "e", ".env", "Env file path")
	fs.StringP("config", "c", "", "Config file (yaml, toml or json)")
	fs.StringP("log", "l", "info", "Log level")
	fs.StringP("proxy", "p", "", "Socks proxy address")
}

// Load builds a Config from fs (already parsed) plus the environment.
func Load(fs *cli.FlagSet) (*Config, error) {
	if envFile, err := fs.GetString("env"); err == nil && envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Debug("No env file loaded", "path", envFile, "err", err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("AROGYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api.key", "AROGYA_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("tts.api_key", "AROGYA_TTS_API_KEY", "OPENAI_API_KEY")

	if f := fs.Lookup("log"); f != nil {
		_ = v.BindPFlag("log.level", f)
	}
	if f := fs.Lookup("proxy"); f != nil {
		_ = v.BindPFlag("proxy", f)
	}

	if file, err := fs.GetString("config"); err == nil && file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.TTS.resolve(cfg.API); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

const OpenAIBaseURL = "https://api.openai.com/v1/"

// resolve fills the speech endpoint. Key and endpoint always come from the
// same place: a speech key alone means OpenAI, no speech key means the main
// API serves speech too.
func (t *TTSConfig) resolve(api APIConfig) error {
	switch {
	case t.APIKey == "" && t.BaseURL != "" && t.BaseURL != api.BaseURL:
		return fmt.Errorf("tts.api_key is required for tts.base_url %s", t.BaseURL)
	case t.APIKey == "":
		t.APIKey = api.Key
		t.BaseURL = api.BaseURL
	case t.BaseURL == "":
		t.BaseURL = OpenAIBaseURL
	}

	model, voice := "playai-tts", "Fritz-PlayAI"
	if t.BaseURL == OpenAIBaseURL {
		model, voice = "tts-1", "alloy"
	}
	if t.Model == "" {
		t.Model = model
	}
	if t.Voice == "" {
		t.Voice = voice
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Transcription.Backend {
	case BackendRemote, BackendGoogle:
	case BackendWhisper:
		if c.Transcription.WhisperModel == "" {
			return errors.New("transcription.whisper_model is required for the whisper backend")
		}
	default:
		return fmt.Errorf("unknown transcription backend %q", c.Transcription.Backend)
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return errors.New("output.path must not be empty")
	}

	return nil
}
