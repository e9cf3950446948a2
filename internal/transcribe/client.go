package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"

	"podstudio/internal/config"
	"podstudio/internal/services"
)

// Options configure one transcription request.
type Options struct {
	// Language is an ISO 639 code hint. Empty means auto-detect.
	Language string
	// Prompt provides domain vocabulary context to the model.
	Prompt string
}

// Client converts audio files into SRT caption text via the OpenAI
// transcription API.
type Client struct {
	api      transcriptionAPI
	model    string
	maxBytes int64
	timeout  time.Duration
	language string
}

// transcriptionAPI is the slice of the OpenAI client we use; *openai.Client
// implements it, tests inject a mock.
type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// New builds a client from transcription configuration. Returns nil when no
// API key is configured; callers treat a nil client as "service unavailable".
func New(cfg config.Transcription) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:      openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		maxBytes: cfg.MaxUploadBytes,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		language: cfg.DefaultLanguage,
	}
}

// newWithAPI is the injection point for tests.
func newWithAPI(api transcriptionAPI, model string, maxBytes int64, timeout time.Duration) *Client {
	return &Client{api: api, model: model, maxBytes: maxBytes, timeout: timeout}
}

// Transcribe sends the audio file to the speech-to-text service and returns
// SRT caption text. Files over the service's size limit fail with
// ErrPayloadTooLarge before any network traffic.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	if c == nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "transcribe",
			"no speech-to-text service configured", nil)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "transcribe", audioPath, err)
	}
	if c.maxBytes > 0 && info.Size() > c.maxBytes {
		return "", services.Wrap(services.ErrPayloadTooLarge, "transcribe", "transcribe",
			fmt.Sprintf("file is %d bytes, service limit is %d", info.Size(), c.maxBytes), nil)
	}

	lang, err := normalizeLanguage(firstNonEmpty(opts.Language, c.language))
	if err != nil {
		return "", err
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateTranscription(reqCtx, openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatSRT,
		Language: lang,
		Prompt:   opts.Prompt,
	})
	if err != nil {
		if reqCtx.Err() != nil {
			return "", services.Wrap(services.ErrTranscription, "transcribe", "transcribe",
				"speech-to-text timed out", reqCtx.Err())
		}
		return "", services.Wrap(services.ErrTranscription, "transcribe", "transcribe", "", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "transcribe",
			"service returned empty transcript", nil)
	}
	return text + "\n", nil
}

// normalizeLanguage validates an ISO 639 hint and reduces it to its base
// language code, which is what the transcription API expects.
func normalizeLanguage(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "language",
			fmt.Sprintf("unrecognized language code %q", trimmed), err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
