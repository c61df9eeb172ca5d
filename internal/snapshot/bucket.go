package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Bucket uploads snapshots to an HTTP object store bucket. The store
// must accept authenticated PUTs under the configured base URL.
type Bucket struct {
	parsedURL *url.URL
	apiKey    string
	client    *http.Client
}

func NewBucket(baseURL, apiKey string, timeout time.Duration) (*Bucket, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse bucket url: %w", err)
	}
	return &Bucket{
		parsedURL: parsed,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// Upload stores the crop and returns the object name as reference.
func (b *Bucket) Upload(ctx context.Context, fp string, at time.Time, jpeg []byte) (string, error) {
	name := objectName(fp, at)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.parsedURL.JoinPath(name).String(), bytes.NewReader(jpeg))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Api-Key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not upload snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("snapshot upload failed with status %d", resp.StatusCode)
	}

	return name, nil
}
