// Package farmapi talks to the smart-farm backend: inference, the captured
// image gallery, the sensor snapshot and the device trigger endpoints.
package farmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"smartfarm-dashboard-go/internal/farmerr"
)

const (
	DefaultBaseURL = "http://localhost:15020"
	DefaultTimeout = 10 * time.Second
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *log.Logger
}

// Client is safe for concurrent use.
type Client struct {
	http    *resty.Client
	baseURL string
	log     *log.Logger
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base URL must have a host, got: %s", baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("API")

	// No retries: a failed call surfaces to the caller as is.
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(logger)

	return &Client{http: client, baseURL: baseURL, log: logger}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL turns a server-relative reference such as "/uploads/x.jpg" into
// an absolute URL. Absolute references are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

// Predict submits one image for disease inference.
func (c *Client) Predict(ctx context.Context, filename, mimeType string, data []byte) (*Prediction, error) {
	const op = "predict"
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", filename, mimeType, bytes.NewReader(data)).
		Post("/api/predict")
	if err != nil {
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}

	var body predictResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.IsError() {
			return nil, farmerr.New(farmerr.KindServerRejected, op, "")
		}
		return nil, farmerr.Wrap(farmerr.KindMalformedResponse, op, "decode response", err)
	}
	if resp.IsError() || body.OK == nil || !*body.OK {
		c.log.Warn("prediction rejected", "status", resp.StatusCode(), "error", body.Error)
		return nil, farmerr.New(farmerr.KindServerRejected, op, body.Error)
	}
	if body.DiseaseName == nil || body.DiseaseCode == nil || body.Confidence == nil {
		return nil, farmerr.New(farmerr.KindMalformedResponse, op, "incomplete prediction")
	}

	p := &Prediction{
		Code:       *body.DiseaseCode,
		Name:       *body.DiseaseName,
		Confidence: *body.Confidence,
	}
	if body.ClassIndex != nil {
		p.ClassIndex = *body.ClassIndex
	}
	return p, nil
}

// ListUploads returns the gallery in server order.
func (c *Client) ListUploads(ctx context.Context) ([]Upload, error) {
	const op = "uploads"
	resp, err := c.http.R().SetContext(ctx).Get("/api/uploads")
	if err != nil {
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}

	var body uploadsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.IsError() {
			return nil, rejected(op, resp)
		}
		return nil, farmerr.Wrap(farmerr.KindMalformedResponse, op, "decode response", err)
	}
	if resp.IsError() || !body.OK {
		return nil, farmerr.New(farmerr.KindServerRejected, op, body.Error)
	}

	uploads := make([]Upload, 0, len(body.Uploads))
	for _, u := range body.Uploads {
		entry := Upload{URL: u.URL, Filename: u.Filename, RawTimestamp: u.Timestamp}
		if t, err := time.ParseInLocation(TimestampLayout, u.Timestamp, time.Local); err == nil {
			entry.CapturedAt = t
		}
		uploads = append(uploads, entry)
	}
	return uploads, nil
}

// LatestSensor fetches the most recent sensor snapshot.
func (c *Client) LatestSensor(ctx context.Context) (*SensorSnapshot, error) {
	const op = "sensor"
	resp, err := c.http.R().SetContext(ctx).Get("/api/sensor")
	if err != nil {
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		if resp.IsError() {
			return nil, rejected(op, resp)
		}
		return nil, farmerr.New(farmerr.KindMalformedResponse, op, "response is not JSON")
	}

	root := gjson.ParseBytes(body)
	if resp.IsError() || !root.Get("ok").Bool() {
		return nil, farmerr.New(farmerr.KindServerRejected, op, root.Get("error").String())
	}
	data := root.Get("data")
	if !data.IsObject() {
		return nil, farmerr.New(farmerr.KindMalformedResponse, op, "missing data object")
	}

	snap := &SensorSnapshot{Extra: map[string]any{}}
	data.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "temperature":
			snap.Temperature = reading(value)
		case "humidity":
			snap.Humidity = reading(value)
		case "soil_moisture":
			snap.SoilMoisture = reading(value)
		case "water_level":
			snap.WaterLevel = reading(value)
		case "timestamp":
			snap.Timestamp = value.String()
		default:
			snap.Extra[key.String()] = value.Value()
		}
		return true
	})
	return snap, nil
}

func reading(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

// Trigger asks the backend to wake a device on its next poll. A non-ok
// status is returned as a rejection together with the decoded ack.
func (c *Client) Trigger(ctx context.Context, device string) (*TriggerAck, error) {
	const op = "trigger"
	switch device {
	case DeviceCamera, DeviceSensor:
	default:
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, fmt.Sprintf("unknown device %q", device))
	}

	resp, err := c.http.R().SetContext(ctx).Get("/trigger/" + device)
	if err != nil {
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}

	var body triggerResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.IsError() {
			return nil, rejected(op, resp)
		}
		return nil, farmerr.Wrap(farmerr.KindMalformedResponse, op, "decode response", err)
	}
	ack := &TriggerAck{Device: device, Status: body.Status, Message: body.Message}
	if resp.IsError() || !ack.OK() {
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("trigger %s returned status %q", device, body.Status)
		}
		return ack, farmerr.New(farmerr.KindServerRejected, op, msg)
	}
	return ack, nil
}

// LatestImage fetches the newest raw camera image. The timestamp query keeps
// intermediaries from serving a cached body.
func (c *Client) LatestImage(ctx context.Context) (*Image, error) {
	return c.FetchImage(ctx, fmt.Sprintf("/api/latest-image?t=%d", time.Now().UnixMilli()))
}

// FetchImage downloads the full body of an image reference. Relative
// references are resolved against the base URL.
func (c *Client) FetchImage(ctx context.Context, ref string) (*Image, error) {
	const op = "image"
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "image/*").
		SetHeader("Cache-Control", "no-cache").
		Get(c.ResolveURL(ref))
	if err != nil {
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}
	if resp.IsError() {
		return nil, rejected(op, resp)
	}
	if len(resp.Body()) == 0 {
		return nil, farmerr.New(farmerr.KindMalformedResponse, op, "empty image body")
	}
	return &Image{Data: resp.Body(), ContentType: resp.Header().Get("Content-Type")}, nil
}

// Health reports whether the backend answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	const op = "health"
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return farmerr.Wrap(farmerr.KindTransport, op, "request failed", err)
	}
	if resp.IsError() || !gjson.GetBytes(resp.Body(), "ok").Bool() {
		return rejected(op, resp)
	}
	return nil
}

func rejected(op string, resp *resty.Response) error {
	msg := gjson.GetBytes(resp.Body(), "error").String()
	if msg == "" && resp.StatusCode() >= http.StatusBadRequest {
		msg = fmt.Sprintf("server returned %s", resp.Status())
	}
	return farmerr.New(farmerr.KindServerRejected, op, msg)
}
