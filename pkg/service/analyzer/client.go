package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
)

const maxResponseBytes = 32 << 20

// Config configures the HTTP client of the analysis service
type Config struct {
	BaseURL        string
	ExplainTimeout time.Duration
	CheckTimeout   time.Duration
	AdminTimeout   time.Duration
	PingTimeout    time.Duration
	RetryDelay     time.Duration
	HTTPClient     *http.Client
}

// DefaultConfig returns the default timeouts for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		ExplainTimeout: 60 * time.Second,
		CheckTimeout:   30 * time.Second,
		AdminTimeout:   90 * time.Second,
		PingTimeout:    5 * time.Second,
		RetryDelay:     500 * time.Millisecond,
	}
}

// Client talks to the analysis service over HTTP
type Client struct {
	cfg  Config
	http *http.Client
}

var _ Service = (*Client)(nil)

// New creates a Client. Zero durations in cfg take the defaults.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, goerr.New("analyzer base URL is required")
	}
	def := DefaultConfig(cfg.BaseURL)
	if cfg.ExplainTimeout <= 0 {
		cfg.ExplainTimeout = def.ExplainTimeout
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if cfg.AdminTimeout <= 0 {
		cfg.AdminTimeout = def.AdminTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, http: hc}, nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// call applies the per call timeout. Idempotent calls are retried once.
func call[T any](ctx context.Context, c *Client, d time.Duration, idempotent bool, fn func(ctx context.Context) (T, error)) (T, error) {
	t := timeout.New[T](timeout.Config{DefaultTimeout: d})
	exec := fn
	if idempotent {
		r := retry.New[T](retry.Config{
			MaxAttempts:   2,
			InitialDelay:  c.cfg.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
		})
		exec = func(ctx context.Context) (T, error) {
			return r.Do(ctx, fn)
		}
	}

	v, err := t.Execute(ctx, d, exec)
	if err != nil && !errors.Is(err, ErrAnalyzerUnavailable) {
		return v, goerr.Wrap(ErrAnalyzerUnavailable, err.Error(), goerr.V("timeout", d.String()))
	}
	return v, err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	url := c.cfg.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build analyzer request", goerr.V("url", url))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, goerr.Wrap(ErrAnalyzerUnavailable, err.Error(),
			goerr.V("method", method), goerr.V("url", url))
	}
	defer safe.Close(ctx, resp.Body)

	data, err := safe.ReadAll(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, goerr.Wrap(ErrAnalyzerUnavailable, "failed to read analyzer response",
			goerr.V("url", url), goerr.V("cause", err.Error()))
	}

	logging.From(ctx).Debug("analyzer call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(started),
	)

	if resp.StatusCode >= 400 {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, goerr.Wrap(ErrAnalyzerUnavailable, "analyzer returned error status",
			goerr.V("method", method),
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", snippet),
		)
	}

	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func multipartBody(img Image) (string, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := img.FileName
	if name == "" {
		name = "image"
	}
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", nil, goerr.Wrap(err, "failed to write multipart part")
	}
	if err := w.Close(); err != nil {
		return "", nil, goerr.Wrap(err, "failed to close multipart writer")
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

func (c *Client) postImage(ctx context.Context, path string, d time.Duration, img Image) (*response, error) {
	ct, body, err := multipartBody(img)
	if err != nil {
		return nil, err
	}
	return call(ctx, c, d, false, func(ctx context.Context) (*response, error) {
		return c.do(ctx, http.MethodPost, path, ct, body)
	})
}

func (c *Client) get(ctx context.Context, path string, d time.Duration) (*response, error) {
	return call(ctx, c, d, true, func(ctx context.Context) (*response, error) {
		return c.do(ctx, http.MethodGet, path, "", nil)
	})
}

func (c *Client) Explain(ctx context.Context, img Image) (*model.ImageAnalysis, error) {
	resp, err := c.postImage(ctx, "/explain", c.cfg.ExplainTimeout, img)
	if err != nil {
		return nil, err
	}
	return ParseExplanation(string(resp.body)), nil
}

func (c *Client) CheckDamage(ctx context.Context) (*model.DamageEstimate, error) {
	resp, err := c.get(ctx, "/check_damage", c.cfg.CheckTimeout)
	if err != nil {
		return nil, err
	}
	return ParseDamageEstimate(string(resp.body)), nil
}

// Comprehensive runs Explain and CheckDamage concurrently and returns the first failure
func (c *Client) Comprehensive(ctx context.Context, img Image) (*Comprehensive, error) {
	var result Comprehensive
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a, err := c.Explain(egCtx, img)
		if err != nil {
			return err
		}
		result.Image = a
		return nil
	})
	eg.Go(func() error {
		est, err := c.CheckDamage(egCtx)
		if err != nil {
			return err
		}
		result.Estimate = est
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AnalyzeDamageComponents(ctx context.Context, img Image) (*model.DamageComponentReport, error) {
	resp, err := c.postImage(ctx, "/admin/analyze-damage-components", c.cfg.AdminTimeout, img)
	if err != nil {
		return nil, err
	}
	return ParseDamageComponents(string(resp.body)), nil
}

// RenderDamage accepts either a raw image body or JSON carrying a base64 "image"
func (c *Client) RenderDamage(ctx context.Context, img Image) (*RenderedImage, error) {
	resp, err := c.postImage(ctx, "/admin/render-damage", c.cfg.AdminTimeout, img)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(resp.contentType, "image/") {
		return &RenderedImage{ContentType: resp.contentType, Data: resp.body}, nil
	}

	var body struct {
		Image       string `json:"image"`
		ContentType string `json:"content_type"`
	}
	if err := json.Unmarshal([]byte(extractJSON(string(resp.body))), &body); err != nil || body.Image == "" {
		return nil, goerr.Wrap(ErrUnexpectedResponse, "render response has no image",
			goerr.V("content_type", resp.contentType))
	}
	return decodeImage(body.Image, body.ContentType)
}

// decodeImage accepts plain base64 or a data URL
func decodeImage(encoded, contentType string) (*RenderedImage, error) {
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, goerr.Wrap(ErrUnexpectedResponse, "malformed data URL")
		}
		if ct, _, _ := strings.Cut(meta, ";"); ct != "" {
			contentType = ct
		}
		encoded = data
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, goerr.Wrap(ErrUnexpectedResponse, "invalid base64 image", goerr.V("cause", err.Error()))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &RenderedImage{ContentType: contentType, Data: data}, nil
}

// ListDamageComponents accepts a JSON array of names or {"components": [...]}
func (c *Client) ListDamageComponents(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, "/admin/damage-components", c.cfg.AdminTimeout)
	if err != nil {
		return nil, err
	}

	doc := []byte(extractJSON(string(resp.body)))
	var names []string
	if err := json.Unmarshal(doc, &names); err == nil {
		return names, nil
	}
	var wrapped struct {
		Components []string `json:"components"`
	}
	if err := json.Unmarshal(doc, &wrapped); err == nil && wrapped.Components != nil {
		return wrapped.Components, nil
	}
	return nil, goerr.Wrap(ErrUnexpectedResponse, "damage component catalog is not a list")
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := call(ctx, c, c.cfg.PingTimeout, true, func(ctx context.Context) (*response, error) {
		return c.do(ctx, http.MethodHead, "/docs", "", nil)
	})
	return err
}
