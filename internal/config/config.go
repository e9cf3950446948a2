package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// DataDir holds per-episode upload directories and final renders.
	DataDir string `toml:"data_dir"`
	// LibraryDir holds reusable assets, one subdirectory per owner plus "global".
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Storage contains per-user storage accounting settings.
type Storage struct {
	// QuotaBytes is the per-user storage limit. Zero disables the policy check.
	QuotaBytes int64 `toml:"quota_bytes"`
}

// Audio contains configuration for the ffmpeg audio engine.
type Audio struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	OutputFormat        string `toml:"output_format"`
	BitrateKbps         int    `toml:"bitrate_kbps"`
	Channels            int    `toml:"channels"`
	ExecTimeoutSeconds  int    `toml:"exec_timeout"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout"`
}

// Transcription contains configuration for the speech-to-text service.
type Transcription struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxUploadBytes  int64  `toml:"max_upload_bytes"`
	DefaultLanguage string `toml:"default_language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podstudio.
//
// Configuration sections by subsystem:
//   - Paths: data/library/log directories and API bind address
//   - Storage: per-user quota policy
//   - Audio: ffmpeg/ffprobe binaries and render targets
//   - Transcription: speech-to-text service connection
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Audio         Audio         `toml:"audio"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podstudio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories podstudio needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LibraryDir, c.Paths.LogDir, c.GlobalLibraryDir()}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "podstudio.db")
}

// LockFilePath returns the daemon instance lock location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "podstudiod.lock")
}

// EpisodeDir is the root directory for one episode's files.
func (c *Config) EpisodeDir(episodeID int64) string {
	return filepath.Join(c.Paths.DataDir, "episodes", strconv.FormatInt(episodeID, 10))
}

// EpisodeUploadDir holds the episode's recorded segment audio.
func (c *Config) EpisodeUploadDir(episodeID int64) string {
	return filepath.Join(c.EpisodeDir(episodeID), "uploads")
}

// EpisodeFinalAudioPath is the canonical final audio location; renders
// overwrite it in place.
func (c *Config) EpisodeFinalAudioPath(episodeID int64) string {
	return filepath.Join(c.EpisodeDir(episodeID), "episode."+c.Audio.OutputFormat)
}

// EpisodeWaveformPath is where the waveform summary image is written.
func (c *Config) EpisodeWaveformPath(episodeID int64) string {
	return filepath.Join(c.EpisodeDir(episodeID), "waveform.png")
}

// FeedMarkerPath is touched after a successful render so the feed layer knows
// to regenerate.
func (c *Config) FeedMarkerPath() string {
	return filepath.Join(c.Paths.DataDir, "feed.stale")
}

// LibraryOwnerDir is the directory holding one owner's reusable assets.
func (c *Config) LibraryOwnerDir(ownerID string) string {
	return filepath.Join(c.Paths.LibraryDir, ownerID)
}

// GlobalLibraryDir holds assets shared with every user.
func (c *Config) GlobalLibraryDir() string {
	return filepath.Join(c.Paths.LibraryDir, "global")
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("absolute path for %s: %w", trimmed, err)
	}
	return abs, nil
}
