// Package assets downloads the remote images placed on paid invoices.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	// DefaultUserAgent is sent with every image request
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxImageBytes = 10 << 20
	previewLength = 200
)

var (
	// ErrUnexpectedStatus is returned when the server does not answer 200
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrNotImage is returned when the response is not an image
	ErrNotImage = errors.New("response is not an image")
)

// Google Drive serves a warning page with a confirm token for files it cannot scan
var confirmPattern = regexp.MustCompile(`confirm=([a-zA-Z0-9\-_]+)`)

// ImageFetcher downloads images over HTTP
type ImageFetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// FetcherOption is a functional option for configuring ImageFetcher
type FetcherOption func(*ImageFetcher)

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) FetcherOption {
	return func(f *ImageFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets a custom logger for ImageFetcher
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *ImageFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewImageFetcher creates a fetcher on top of client. A nil client uses http.DefaultClient.
func NewImageFetcher(client *http.Client, opts ...FetcherOption) *ImageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &ImageFetcher{
		client:    client,
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the image at url and checks that it decodes
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Warn("image fetch failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("error fetching image from %s: %w", url, err)
	}
	f.logger.Debug("image fetched", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

func (f *ImageFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := *f.client
	client.Jar = jar

	contentType, body, err := f.get(ctx, &client, url)
	if err != nil {
		return nil, err
	}

	if !isImageType(contentType) {
		text := string(body)
		if !strings.Contains(text, "google.com") || !strings.Contains(text, "confirm=") {
			return nil, fmt.Errorf("%w: URL %s did not return an image. Content-Type: %s. Response preview: %s",
				ErrNotImage, url, contentType, preview(body))
		}

		match := confirmPattern.FindStringSubmatch(text)
		if match == nil {
			return nil, fmt.Errorf("%w: URL %s returned a confirmation page, but no confirmation token found. Content-Type: %s. Response preview: %s",
				ErrNotImage, url, contentType, preview(body))
		}

		f.logger.Debug("following download confirmation", zap.String("url", url))
		contentType, body, err = f.get(ctx, &client, url+"&confirm="+match[1])
		if err != nil {
			return nil, err
		}
		if !isImageType(contentType) {
			return nil, fmt.Errorf("%w: URL %s still did not return an image after confirmation. Content-Type: %s. Response preview: %s",
				ErrNotImage, url, contentType, preview(body))
		}
	}

	if err := verifyImage(body); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *ImageFetcher) get(ctx context.Context, client *http.Client, url string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: failed to fetch image from %s. Status code: %d",
			ErrUnexpectedStatus, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxImageBytes {
		return "", nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxImageBytes)
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// verifyImage sniffs the payload and decodes its header
func verifyImage(data []byte) error {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotImage, detected.String())
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("cannot identify image (%s): %w", detected.String(), err)
	}
	return nil
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func preview(body []byte) string {
	runes := []rune(string(body))
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes)
}
