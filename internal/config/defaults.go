package config

const (
	defaultDataDir             = "~/.local/share/podstudio/data"
	defaultLibraryDir          = "~/.local/share/podstudio/library"
	defaultLogDir              = "~/.local/share/podstudio/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultQuotaBytes          = int64(2) << 30 // 2 GiB per user
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultOutputFormat        = "mp3"
	defaultBitrateKbps         = 128
	defaultChannels            = 2
	defaultExecTimeoutSeconds  = 600
	defaultProbeTimeoutSeconds = 30
	defaultSTTBaseURL          = "https://api.openai.com/v1"
	defaultSTTModel            = "whisper-1"
	defaultSTTTimeoutSeconds   = 300
	defaultSTTMaxUploadBytes   = int64(25) << 20 // OpenAI transcription file limit
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			QuotaBytes: defaultQuotaBytes,
		},
		Audio: Audio{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			OutputFormat:        defaultOutputFormat,
			BitrateKbps:         defaultBitrateKbps,
			Channels:            defaultChannels,
			ExecTimeoutSeconds:  defaultExecTimeoutSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Transcription: Transcription{
			BaseURL:        defaultSTTBaseURL,
			Model:          defaultSTTModel,
			TimeoutSeconds: defaultSTTTimeoutSeconds,
			MaxUploadBytes: defaultSTTMaxUploadBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
