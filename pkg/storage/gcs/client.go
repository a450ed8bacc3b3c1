package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
)

const (
	defaultEndpoint = "https://storage.googleapis.com"
	pingTimeout     = 5 * time.Second
	requestTimeout  = 30 * time.Second
)

var (
	errNotInitialized = errors.New("gcs client not initialized")
	errBucketMissing  = errors.New("bucket missing")
)

// Client talks to the Cloud Storage JSON API for a single bucket.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	publicBaseURL string
	bucket        string
	tokens        oauth2.TokenSource
	logg          *logger.Logger
}

var _ storage.ObjectStore = (*Client)(nil)

// NewClient resolves credentials and builds a client for cfg.BucketName.
// The bucket is not contacted; use Ping for that.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	ts, err := credentialsFor(ctx, httpClient, gcp)
	if err != nil {
		return nil, err
	}
	client := newClient(httpClient, defaultEndpoint, cfg.PublicBaseURL, cfg.BucketName, ts, logg)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(httpClient *http.Client, endpoint, publicBaseURL, bucket string, ts oauth2.TokenSource, logg *logger.Logger) *Client {
	if publicBaseURL == "" {
		publicBaseURL = defaultEndpoint
	}
	return &Client{
		httpClient:    httpClient,
		endpoint:      strings.TrimRight(endpoint, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		bucket:        bucket,
		tokens:        ts,
		logg:          logg,
	}
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Close() error { return nil }

// Ping fails unless the bucket exists and is readable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	ok, err := c.BucketExists(ctx)
	switch {
	case err != nil:
		return err
	case !ok:
		return fmt.Errorf("gcs bucket %q not found", c.bucket)
	}
	return nil
}

func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	err := c.call(ctx, "bucket lookup", http.MethodGet, c.bucketURL(""), "", nil, outcomes{
		http.StatusOK:       nil,
		http.StatusNotFound: errBucketMissing,
	})
	if errors.Is(err, errBucketMissing) {
		return false, nil
	}
	return err == nil, err
}

// Upload writes a new object. ifGenerationMatch=0 makes GCS refuse to
// overwrite, which surfaces as storage.ErrObjectExists.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	q := url.Values{"uploadType": {"media"}, "name": {key}, "ifGenerationMatch": {"0"}}
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.endpoint, url.PathEscape(c.bucket), q.Encode())
	return c.call(ctx, "upload", http.MethodPost, u, contentType, body, outcomes{
		http.StatusOK:                 nil,
		http.StatusCreated:            nil,
		http.StatusPreconditionFailed: fmt.Errorf("%w: %s", storage.ErrObjectExists, key),
	})
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.call(ctx, "delete", http.MethodDelete, c.bucketURL("/o/"+url.PathEscape(key)), "", nil, outcomes{
		http.StatusOK:        nil,
		http.StatusNoContent: nil,
		http.StatusNotFound:  fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key),
	})
}

// PublicURL builds <public base>/<bucket>/<key>, escaping each key segment.
func (c *Client) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, url.PathEscape(c.bucket), strings.Join(segments, "/"))
}

func (c *Client) bucketURL(suffix string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s%s", c.endpoint, url.PathEscape(c.bucket), suffix)
}

// outcomes maps expected statuses onto results. Any other status becomes a
// *googleapi.Error.
type outcomes map[int]error

func (c *Client) call(ctx context.Context, op, method, u, contentType string, body io.Reader, expect outcomes) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("gcs token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcs %s: %w", op, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil && c.logg != nil {
			c.logg.Warn(ctx, "gcs: closing response body failed")
		}
	}()

	if result, ok := expect[resp.StatusCode]; ok {
		return result
	}
	return responseError(op, resp)
}

// responseError decodes the JSON API error body into a *googleapi.Error.
func responseError(op string, resp *http.Response) error {
	err := googleapi.CheckResponse(resp)
	if err == nil {
		err = &googleapi.Error{Code: resp.StatusCode, Message: resp.Status}
	}
	return fmt.Errorf("gcs %s failed: %w", op, err)
}
