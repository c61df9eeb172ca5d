package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the HTTP implementation of Gateway and PeopleLister.
type Client struct {
	parsedURL *url.URL
	apiKey    string
	client    *http.Client
}

// NewClient creates an attendance backend client. timeout bounds each
// request so a stuck backend cannot wedge the tick loop dispatcher.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse attendance url: %w", err)
	}
	return &Client{
		parsedURL: parsed,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// resolveURL builds a full URL from the base API URL and path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// doGetJSON performs a GET request and unmarshals the JSON response into
// the result type.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodGet, endpoint, nil)
}

// doPostJSON performs a POST request with a JSON body and unmarshals the
// JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodPost, endpoint, requestBody)
}

func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}

// readErrorBody reads the response body for error messages. Returns an
// empty marker if reading fails; we are already in an error path.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

type toggleRequest struct {
	PersonID    string `json:"person_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	At          string `json:"at"`
	SnapshotRef string `json:"snapshot_ref,omitempty"`
}

// ToggleKnown flips the presence record of a directory person.
func (c *Client) ToggleKnown(ctx context.Context, personID string, at time.Time) (*ToggleResult, error) {
	return doPostJSON[ToggleResult](ctx, c, "api/v1/toggle", toggleRequest{
		PersonID: personID,
		At:       at.UTC().Format(time.RFC3339),
	})
}

// ToggleUnknown flips the presence record of an unknown visitor.
func (c *Client) ToggleUnknown(ctx context.Context, fingerprint string, at time.Time, snapshotRef string) (*ToggleResult, error) {
	return doPostJSON[ToggleResult](ctx, c, "api/v1/toggle", toggleRequest{
		Fingerprint: fingerprint,
		At:          at.UTC().Format(time.RFC3339),
		SnapshotRef: snapshotRef,
	})
}

type peopleResponse struct {
	People []Person `json:"people"`
}

// ListPeople reads the full people directory from the backend.
func (c *Client) ListPeople(ctx context.Context) ([]Person, error) {
	resp, err := doGetJSON[peopleResponse](ctx, c, "api/v1/people")
	if err != nil {
		return nil, err
	}
	return resp.People, nil
}
