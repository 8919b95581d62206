package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/nao1215/registry-validator/internal/model"
)

// defaultRequestTimeout bounds one REST call.
const defaultRequestTimeout = 30 * time.Second

// PostgREST is a Store backed by a PostgREST API such as Supabase's.
type PostgREST struct {
	client *resty.Client
	tables Tables
}

// PostgRESTOption configures a PostgREST store.
type PostgRESTOption func(*postgrestOptions)

type postgrestOptions struct {
	timeout time.Duration
	logger  *slog.Logger
}

// WithRequestTimeout bounds every REST call.
func WithRequestTimeout(d time.Duration) PostgRESTOption {
	return func(o *postgrestOptions) {
		o.timeout = d
	}
}

// WithLogger sets the logger that receives client warnings.
func WithLogger(logger *slog.Logger) PostgRESTOption {
	return func(o *postgrestOptions) {
		o.logger = logger
	}
}

// NewPostgREST creates a store for the REST endpoint at baseURL
// (for Supabase: https://<project>.supabase.co/rest/v1). apiKey is sent both
// as the apikey header and as a bearer token.
func NewPostgREST(baseURL, apiKey string, tables Tables, opts ...PostgRESTOption) (*PostgREST, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingURL
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	o := postgrestOptions{
		timeout: defaultRequestTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetLogger(slogAdapter{logger: o.logger}).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey).SetAuthToken(apiKey)
	}

	return &PostgREST{client: client, tables: tables}, nil
}

// FetchAllServers implements Store.
func (p *PostgREST) FetchAllServers(ctx context.Context) ([]model.Server, error) {
	var servers []model.Server
	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetResult(&servers).
		Get("/" + p.tables.Servers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchServers, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %w", ErrFetchServers, responseError(res))
	}
	return servers, nil
}

// InsertStatus implements Store.
func (p *PostgREST) InsertStatus(ctx context.Context, status *model.ServerStatus) error {
	res, err := p.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody([]*model.ServerStatus{status}).
		Post("/" + p.tables.Statuses)
	if err != nil {
		return fmt.Errorf("%w: status of %s: %w", ErrPersistence, status.ServerUUID, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: status of %s: %w", ErrPersistence, status.ServerUUID, responseError(res))
	}
	return nil
}

// DeleteServer implements Store.
func (p *PostgREST) DeleteServer(ctx context.Context, uuid string) error {
	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("uuid", "eq."+uuid).
		Delete("/" + p.tables.Servers)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeletion, uuid, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: %s: %w", ErrDeletion, uuid, responseError(res))
	}
	return nil
}

// Close implements Store.
func (p *PostgREST) Close() error {
	return p.client.Close()
}

func responseError(res *resty.Response) error {
	body := strings.TrimSpace(res.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, res.StatusCode(), body)
}

// slogAdapter forwards resty's printf-style logging to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "postgrest")
}

func (a slogAdapter) Warnf(format string, v ...any) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "postgrest")
}

func (a slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "postgrest")
}
