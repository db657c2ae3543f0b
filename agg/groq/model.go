package groq

import (
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type ModelID string

const (
	Compound     ModelID = "compound-beta"
	CompoundMini ModelID = "compound-beta-mini"
)

const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1"
	DefaultAPIKeyEnv = "GROQ_API_KEY"
)

// Options tweak how the underlying API client is built. The zero value talks to Groq with the
// key from GROQ_API_KEY.
type Options struct {
	BaseURL    string
	APIKeyEnv  string
	HTTPClient *http.Client
}

// Model holds the configuration for streaming chat completions from a Groq model.
type Model struct {
	model ModelID
	api   *openai.Client
}

// NewModel creates a new Model. The API key is read from the environment here, authentication
// and retries are then handled by the client library.
func NewModel(model ModelID, opts Options) *Model {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	keyEnv := strings.TrimSpace(opts.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = DefaultAPIKeyEnv
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithAPIKey(os.Getenv(keyEnv)),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(reqOpts...)
	return &Model{
		model: model,
		api:   &client,
	}
}

func (m *Model) ID() string {
	return string(m.model)
}
