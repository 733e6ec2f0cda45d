package detection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

const defaultTimeout = 5 * time.Second

// Detection is one object reported by the model.
type Detection struct {
	Class string    `json:"class"`
	Score float64   `json:"score"`
	Box   []float64 `json:"box"` // [x1, y1, x2, y2]
}

// Client asks a remote model whether a frame contains something moving.
type Client struct {
	URL      string
	MinScore float64
	HTTP     *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		URL:  baseURL,
		HTTP: &http.Client{Timeout: defaultTimeout},
	}
}

// Detect sends a JPEG frame to /predict and reports whether any detection
// scored at least MinScore. With a zero MinScore any detection counts.
func (c *Client) Detect(ctx context.Context, frame []byte, slot int) (bool, error) {
	detections, err := c.Predict(ctx, frame, slot)
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(detections, func(d Detection) bool {
		return d.Score >= c.MinScore
	}), nil
}

// Predict отправляет изображение JPEG байтами на /predict
func (c *Client) Predict(ctx context.Context, imageData []byte, slot int) ([]Detection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// Создаем form field с правильным Content-Type
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="cam%d.jpg"`, slot))
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, bodyBytes)
	}

	var detections []Detection
	if err := json.NewDecoder(resp.Body).Decode(&detections); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return detections, nil
}
