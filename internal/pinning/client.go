// Package pinning uploads content to a Pinata-compatible pinning service.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/logging"
)

// ErrUploadFailed is returned when the pinning service rejects an upload
var ErrUploadFailed = errors.New("IPFS upload failed")

// Pinner stores content and returns its gateway location
type Pinner interface {
	PinFile(ctx context.Context, name string, r io.Reader) (*Pin, error)
	PinJSON(ctx context.Context, name string, v interface{}) (*Pin, error)
}

// Pin is a pinned object
type Pin struct {
	CID  string `json:"cid"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Options configures a Client
type Options struct {
	APIURL       string
	GatewayURL   string
	JWT          string
	APIKey       string
	SecretAPIKey string
	RetryMax     int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Client talks to the Pinata pinning API
type Client struct {
	apiURL     string
	gatewayURL string
	jwt        string
	apiKey     string
	secretKey  string
	http       *retryablehttp.Client
	logger     *zap.Logger
}

// NewClient creates a pinning client
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = logging.RetryableLogger{L: logger}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}

	return &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		gatewayURL: strings.TrimRight(opts.GatewayURL, "/"),
		jwt:        opts.JWT,
		apiKey:     opts.APIKey,
		secretKey:  opts.SecretAPIKey,
		http:       rc,
		logger:     logger,
	}
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinataMetadata struct {
	Name string `json:"name,omitempty"`
}

// PinFile uploads a file with pinFileToIPFS
func (c *Client) PinFile(ctx context.Context, name string, r io.Reader) (*Pin, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	meta, err := json.Marshal(pinataMetadata{Name: name})
	if err != nil {
		return nil, err
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, fmt.Errorf("failed to write metadata field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return c.pin(ctx, "/pinning/pinFileToIPFS", mw.FormDataContentType(), body.Bytes())
}

// PinJSON uploads a JSON document with pinJSONToIPFS
func (c *Client) PinJSON(ctx context.Context, name string, v interface{}) (*Pin, error) {
	payload, err := json.Marshal(struct {
		Content  interface{}    `json:"pinataContent"`
		Metadata pinataMetadata `json:"pinataMetadata"`
	}{Content: v, Metadata: pinataMetadata{Name: name}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON content: %w", err)
	}

	return c.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", payload)
}

// GatewayURL returns the public URL of a CID
func (c *Client) GatewayURL(cid string) string {
	return c.gatewayURL + "/ipfs/" + cid
}

func (c *Client) pin(ctx context.Context, path, contentType string, body []byte) (*Pin, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUploadFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Pinning service rejected upload",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var pr pinResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUploadFailed, err)
	}
	if pr.IpfsHash == "" {
		return nil, fmt.Errorf("%w: response has no IpfsHash", ErrUploadFailed)
	}

	return &Pin{
		CID:  pr.IpfsHash,
		URL:  c.GatewayURL(pr.IpfsHash),
		Size: pr.PinSize,
	}, nil
}

func (c *Client) authorize(h http.Header) {
	if c.jwt != "" {
		h.Set("Authorization", "Bearer "+c.jwt)
		return
	}
	if c.apiKey != "" {
		h.Set("pinata_api_key", c.apiKey)
		h.Set("pinata_secret_api_key", c.secretKey)
	}
}
