package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pinecone"
)

type PineconeConfig struct {
	APIKey        string
	Environment   string
	Index         string
	Host          string // skips the controller lookup when set
	Namespace     string
	ControllerURL string // defaults to https://controller.<environment>.pinecone.io
}

// NewPinecone opens the configured Pinecone index. The index host is looked
// up once here, not per request.
func NewPinecone(ctx context.Context, config PineconeConfig, embedder embeddings.Embedder, client *http.Client) (vectorstores.VectorStore, error) {
	host := config.Host
	if host == "" {
		var err error
		if host, err = ResolveHost(ctx, client, config); err != nil {
			return nil, err
		}
	}

	opts := []pinecone.Option{
		pinecone.WithHost(strings.TrimPrefix(host, "https://")),
		pinecone.WithAPIKey(config.APIKey),
		pinecone.WithEmbedder(embedder),
	}
	if config.Namespace != "" {
		opts = append(opts, pinecone.WithNameSpace(config.Namespace))
	}

	st, err := pinecone.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize pinecone store")
	}
	return &st, nil
}

type describeIndexResponse struct {
	Host   string `json:"host"`
	Status struct {
		Host string `json:"host"`
	} `json:"status"`
}

// ResolveHost asks the Pinecone controller for the data-plane host of the
// configured index.
func ResolveHost(ctx context.Context, client *http.Client, config PineconeConfig) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	base := config.ControllerURL
	if base == "" {
		base = fmt.Sprintf("https://controller.%s.pinecone.io", config.Environment)
	}
	endpoint := strings.TrimSuffix(base, "/") + "/databases/" + url.PathEscape(config.Index)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build index lookup request")
	}
	req.Header.Set("Api-Key", config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up pinecone index %s", config.Index)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("pinecone index lookup for %s returned status %d", config.Index, resp.StatusCode)
	}

	var body describeIndexResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "failed to decode pinecone index description")
	}

	host := body.Status.Host
	if host == "" {
		host = body.Host
	}
	if host == "" {
		return "", errors.Errorf("pinecone index %s has no host yet", config.Index)
	}
	return host, nil
}
