// Package detector polls the face detector sidecar for per-frame
// detections. The sidecar owns the camera and the detection model; this
// client only consumes its JSON frames.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultDetectorURL = "http://localhost:8000"

// Box is a face bounding box in pixel coordinates.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

func (b Box) Width() float64 {
	return b.X2 - b.X1
}

func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Detection is a single face found in a frame.
type Detection struct {
	Index     int
	Box       Box
	Embedding []float32
	Score     float64
	Crop      []byte // JPEG crop of the face, may be empty
}

// Tick is one detector frame: everything seen at one capture instant.
type Tick struct {
	CapturedAt time.Time
	Detections []Detection
}

// Client reads frames from the detector service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a detector client. timeout bounds each frame request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type frameResponse struct {
	CapturedAt int64           `json:"captured_at_ms"`
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
}

type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
	Crop      []byte    `json:"crop,omitempty"` // base64 JPEG
}

// NextTick fetches the latest frame from the detector. Malformed
// detections inside an otherwise valid frame are dropped with a warning
// rather than failing the whole tick.
func (c *Client) NextTick(ctx context.Context) (*Tick, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/frame/latest", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	return ParseFrame(body)
}

// ParseFrame decodes one detector frame. Malformed detections inside an
// otherwise valid frame are dropped with a warning rather than failing
// the whole tick. Frames without a capture timestamp get the wall clock.
func ParseFrame(data []byte) (*Tick, error) {
	var frame frameResponse
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}

	tick := &Tick{
		CapturedAt: time.UnixMilli(frame.CapturedAt),
		Detections: make([]Detection, 0, len(frame.Faces)),
	}
	if frame.CapturedAt == 0 {
		tick.CapturedAt = time.Now()
	}

	for _, face := range frame.Faces {
		if len(face.Embedding) == 0 || len(face.BBox) != 4 {
			log.Printf("dropping malformed detection %d (dim=%d, bbox=%d)",
				face.FaceIndex, len(face.Embedding), len(face.BBox))
			continue
		}
		tick.Detections = append(tick.Detections, Detection{
			Index: face.FaceIndex,
			Box: Box{
				X1: face.BBox[0],
				Y1: face.BBox[1],
				X2: face.BBox[2],
				Y2: face.BBox[3],
			},
			Embedding: face.Embedding,
			Score:     face.DetScore,
			Crop:      face.Crop,
		})
	}

	return tick, nil
}
