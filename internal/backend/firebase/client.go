// Package firebase implements the service interfaces on the Firebase REST
// APIs: Identity Toolkit for accounts, Firestore for tasks and Firebase Storage
// for profile pictures.
package firebase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	firestore "google.golang.org/api/firestore/v1"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"firetodo/internal/config"
	"firetodo/internal/service"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// Default production endpoints.
	tokenEndpoint   = "https://securetoken.googleapis.com/v1/token"
	storageEndpoint = "https://firebasestorage.googleapis.com/v0/"

	// Lifetime assumed when the server omits expiresIn.
	defaultTokenLifetime = 3600
)

// Options configures a Client. Empty endpoints select production.
type Options struct {
	APIKey    string
	ProjectID string
	Bucket    string

	AuthEndpoint      string
	TokenURL          string
	FirestoreEndpoint string
	StorageEndpoint   string

	// PollInterval paces live query refreshes.
	PollInterval time.Duration

	// HTTPClient is the base transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// OptionsFromConfig maps loaded configuration to client options, routing
// to local emulators when their hosts are set.
func OptionsFromConfig(cfg *config.Config) Options {
	fb := cfg.Firebase
	opts := Options{
		APIKey:       fb.APIKey,
		ProjectID:    fb.ProjectID,
		Bucket:       fb.StorageBucket,
		PollInterval: cfg.PollInterval,
	}
	if h := fb.AuthEmulatorHost; h != "" {
		opts.AuthEndpoint = "http://" + h + "/www.googleapis.com/identitytoolkit/v3/relyingparty/"
		opts.TokenURL = "http://" + h + "/securetoken.googleapis.com/v1/token"
	}
	if h := fb.FirestoreEmulatorHost; h != "" {
		opts.FirestoreEndpoint = "http://" + h + "/"
	}
	if h := fb.StorageEmulatorHost; h != "" {
		opts.StorageEndpoint = "http://" + h + "/v0/"
	}
	return opts
}

// Client bundles the three Firebase services.
type Client struct {
	Auth   *Auth
	Store  *Store
	Bucket *Bucket
}

// New creates a client from loaded configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	opts := OptionsFromConfig(cfg)
	opts.Logger = logger
	return NewWithOptions(ctx, opts)
}

// NewWithOptions creates a client with explicit endpoints and transport.
func NewWithOptions(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" || opts.ProjectID == "" {
		return nil, fmt.Errorf("firebase: API key and project ID are required")
	}
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Bucket == "" {
		opts.Bucket = opts.ProjectID + ".appspot.com"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = tokenEndpoint
	}
	if opts.StorageEndpoint == "" {
		opts.StorageEndpoint = storageEndpoint
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}

	authOpts := []option.ClientOption{option.WithHTTPClient(base)}
	if opts.AuthEndpoint != "" {
		authOpts = append(authOpts, option.WithEndpoint(opts.AuthEndpoint))
	}
	idt, err := identitytoolkit.NewService(ctx, authOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}
	auth := newAuth(ctx, idt, base, opts.APIKey, opts.TokenURL+"?key="+opts.APIKey, logger)

	// Data requests carry the current ID token. The transport asks Auth on
	// every request so sign-out takes effect immediately.
	authed := &http.Client{
		Transport: &oauth2.Transport{Source: auth, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	fsOpts := []option.ClientOption{option.WithHTTPClient(authed)}
	if opts.FirestoreEndpoint != "" {
		fsOpts = append(fsOpts, option.WithEndpoint(opts.FirestoreEndpoint))
	}
	fs, err := firestore.NewService(ctx, fsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}

	return &Client{
		Auth:   auth,
		Store:  newStore(fs, authed, opts.ProjectID, opts.PollInterval, logger),
		Bucket: newBucket(authed, opts.StorageEndpoint, opts.Bucket),
	}, nil
}

// Services returns the client as a service bundle.
func (c *Client) Services() service.Backend {
	return service.Backend{
		Auth:  c.Auth,
		Tasks: c.Store,
		Blobs: c.Bucket,
	}
}
