package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/infrastructure/credential"
	"go.uber.org/zap"
)

const (
	defaultCloudTimeout = 30 * time.Second
	defaultCloudRoot    = "/receipts"
	maxErrorBody        = 4 << 10
)

// CloudConfig describes a Dropbox v2 compatible file API
type CloudConfig struct {
	APIURL     string
	ContentURL string
	RootPath   string
	Timeout    time.Duration
}

// CloudStorage uploads receipts and publishes a shared link for each.
type CloudStorage struct {
	apiURL     string
	contentURL string
	root       string
	tokens     credential.TokenProvider
	client     *http.Client
	logger     *zap.Logger
}

// CloudOption configures CloudStorage
type CloudOption func(*CloudStorage)

// WithCloudLogger sets the logger
func WithCloudLogger(l *zap.Logger) CloudOption {
	return func(s *CloudStorage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCloudHTTPClient overrides the HTTP client
func WithCloudHTTPClient(c *http.Client) CloudOption {
	return func(s *CloudStorage) {
		if c != nil {
			s.client = c
		}
	}
}

// NewCloudStorage creates a CloudStorage that authenticates through tokens.
func NewCloudStorage(cfg CloudConfig, tokens credential.TokenProvider, opts ...CloudOption) (*CloudStorage, error) {
	if tokens == nil {
		return nil, errors.New("token provider is required")
	}
	if cfg.APIURL == "" {
		return nil, errors.New("cloud api url is required")
	}
	if cfg.ContentURL == "" {
		return nil, errors.New("cloud content url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCloudTimeout
	}
	root := cfg.RootPath
	if root == "" {
		root = defaultCloudRoot
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}

	s := &CloudStorage{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		contentURL: strings.TrimRight(cfg.ContentURL, "/"),
		root:       path.Clean(root),
		tokens:     tokens,
		client:     &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements receipt.StorageBackend
func (s *CloudStorage) Name() string { return "cloud" }

// RemotePath returns where rec is uploaded
func (s *CloudStorage) RemotePath(rec *receipt.Record) string {
	return path.Join(s.root, ObjectPath(rec))
}

// Persist implements receipt.StorageBackend. There is no retry; any failure
// is reported as receipt.ErrUpload.
func (s *CloudStorage) Persist(ctx context.Context, doc receipt.Document, rec *receipt.Record) receipt.StorageResult {
	if rec == nil {
		return uploadFailed(errors.New("record is nil"))
	}
	if doc.IsEmpty() {
		return uploadFailed(errors.New("document is empty"))
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return uploadFailed(fmt.Errorf("obtain access token: %w", err))
	}

	remote := s.RemotePath(rec)
	if err := s.upload(ctx, token, remote, doc); err != nil {
		s.invalidateOnAuthError(ctx, err)
		return uploadFailed(err)
	}

	link, err := s.sharedLink(ctx, token, remote)
	if err != nil {
		s.invalidateOnAuthError(ctx, err)
		return uploadFailed(err)
	}

	s.logger.Info("receipt uploaded",
		zap.String("receipt_number", rec.Number),
		zap.String("remote_path", remote),
	)
	return receipt.StoredWithLink(remote, link)
}

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

func (s *CloudStorage) upload(ctx context.Context, token, remote string, doc receipt.Document) error {
	arg, err := headerSafeJSON(uploadArg{Path: remote, Mode: "overwrite", Mute: true})
	if err != nil {
		return fmt.Errorf("encode upload argument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.contentURL+"/2/files/upload", doc.Reader())
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", arg)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", remote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return newAPIError("upload", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type shareRequest struct {
	Path     string        `json:"path"`
	Settings shareSettings `json:"settings"`
}

type shareSettings struct {
	RequestedVisibility string `json:"requested_visibility"`
}

type sharedLinkMetadata struct {
	URL string `json:"url"`
}

type shareConflict struct {
	Error struct {
		Tag    string `json:".tag"`
		Exists *struct {
			Metadata *sharedLinkMetadata `json:"metadata"`
		} `json:"shared_link_already_exists"`
	} `json:"error"`
}

func (s *CloudStorage) sharedLink(ctx context.Context, token, remote string) (string, error) {
	body, err := json.Marshal(shareRequest{
		Path:     remote,
		Settings: shareSettings{RequestedVisibility: "public"},
	})
	if err != nil {
		return "", fmt.Errorf("encode share request: %w", err)
	}

	resp, err := s.postJSON(ctx, token, "/2/sharing/create_shared_link_with_settings", body)
	if err != nil {
		return "", fmt.Errorf("create shared link: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		var meta sharedLinkMetadata
		if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
			return "", fmt.Errorf("decode shared link: %w", err)
		}
		if meta.URL == "" {
			return "", errors.New("shared link response has no url")
		}
		return meta.URL, nil

	case resp.StatusCode == http.StatusConflict:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var conflict shareConflict
		if err := json.Unmarshal(raw, &conflict); err != nil || conflict.Error.Tag != "shared_link_already_exists" {
			return "", &APIError{Op: "create shared link", StatusCode: resp.StatusCode, Body: string(raw)}
		}
		if e := conflict.Error.Exists; e != nil && e.Metadata != nil && e.Metadata.URL != "" {
			return e.Metadata.URL, nil
		}
		return s.existingLink(ctx, token, remote)

	default:
		return "", newAPIError("create shared link", resp)
	}
}

func (s *CloudStorage) existingLink(ctx context.Context, token, remote string) (string, error) {
	body, err := json.Marshal(map[string]any{"path": remote, "direct_only": true})
	if err != nil {
		return "", fmt.Errorf("encode list request: %w", err)
	}

	resp, err := s.postJSON(ctx, token, "/2/sharing/list_shared_links", body)
	if err != nil {
		return "", fmt.Errorf("list shared links: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", newAPIError("list shared links", resp)
	}

	var list struct {
		Links []sharedLinkMetadata `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode shared links: %w", err)
	}
	for _, l := range list.Links {
		if l.URL != "" {
			return l.URL, nil
		}
	}
	return "", fmt.Errorf("no shared link found for %s", remote)
}

func (s *CloudStorage) postJSON(ctx context.Context, token, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return s.client.Do(req)
}

// A rejected token is dropped from the cache so the next issue refreshes it.
func (s *CloudStorage) invalidateOnAuthError(ctx context.Context, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return
	}
	inv, ok := s.tokens.(interface{ Invalidate(context.Context) error })
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate access token", zap.Error(err))
	}
}

// APIError is a non-2xx response from the cloud API
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func newAPIError(op string, resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func uploadFailed(err error) receipt.StorageResult {
	return receipt.StorageFailed(fmt.Errorf("%w: %w", receipt.ErrUpload, err))
}

// headerSafeJSON encodes v as JSON with every non-ASCII character escaped,
// as required for JSON carried in an HTTP header.
func headerSafeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range string(raw) {
		if r < 0x7f {
			b.WriteRune(r)
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String(), nil
}

var _ receipt.StorageBackend = (*CloudStorage)(nil)
