package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/PortableShelf/internal/domain/app"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// Options configures a Remote.
type Options struct {
	Timeout time.Duration
	// Retries applies to connection failures and 502/503/504 only.
	Retries int
	Breaker resilience.Settings
}

// DefaultOptions returns the defaults for long-lived callers such as a GUI
// grid, where the breaker sees many calls over the client's lifetime.
func DefaultOptions() Options {
	return Options{
		Timeout: 10 * time.Second,
		Retries: 2,
		Breaker: resilience.Settings{
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
		},
	}
}

// Remote implements app.Service against a running shelfd.
type Remote struct {
	base    string
	resty   *resty.Client
	breaker *resilience.Breaker
}

var _ app.Service = (*Remote)(nil)

// envelope is the union of every daemon response body.
type envelope struct {
	Success bool                   `json:"success"`
	Kind    string                 `json:"kind,omitempty"`
	Error   string                 `json:"error,omitempty"`
	App     *types.App             `json:"app,omitempty"`
	Apps    []types.App            `json:"apps,omitempty"`
	Info    *types.AppInfo         `json:"info,omitempty"`
	Launch  *types.LaunchResult    `json:"launch,omitempty"`
	Result  *types.ReconcileResult `json:"result,omitempty"`
	Stats   *types.RegistryStats   `json:"stats,omitempty"`
}

// OneShotOptions returns options for a client that makes a handful of calls
// and exits, like one CLI invocation. A single server fault opens the
// breaker so the remaining calls fail fast instead of waiting out retries.
func OneShotOptions() Options {
	opts := DefaultOptions()
	opts.Breaker.FailureThreshold = 1
	return opts
}

// NewRemote creates a client for the daemon at baseURL.
func NewRemote(baseURL string, opts Options, logger *logging.Logger) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid daemon address %q", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil
	if logger != nil {
		retryClient.Logger = leveledLogger{logger.Named("remote").Sugar()}
	}

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "shelf-cli/1.0").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	settings := opts.Breaker
	settings.IsFailure = isFailure

	return &Remote{
		base:    baseURL,
		resty:   restyClient,
		breaker: resilience.New("shelfd", settings),
	}, nil
}

// Ping checks that the daemon answers its health endpoint.
func (r *Remote) Ping(ctx context.Context) error {
	_, err := r.call(ctx, http.MethodGet, "/health", "", nil, nil)
	return err
}

func (r *Remote) List(ctx context.Context, filter types.Filter, search string) ([]types.App, error) {
	q := map[string]string{"filter": string(filter)}
	if search != "" {
		q["search"] = search
	}
	env, err := r.call(ctx, http.MethodGet, "/apps", "", nil, q)
	if err != nil {
		return nil, err
	}
	if env.Apps == nil {
		return []types.App{}, nil
	}
	return env.Apps, nil
}

func (r *Remote) Find(ctx context.Context, query string) (types.App, error) {
	env, err := r.call(ctx, http.MethodGet, "/apps/find", query, nil, map[string]string{"q": query})
	return appOf(env, err)
}

func (r *Remote) Info(ctx context.Context, name string) (types.AppInfo, error) {
	env, err := r.call(ctx, http.MethodGet, appPath(name), name, nil, nil)
	if err != nil {
		return types.AppInfo{}, err
	}
	if env.Info == nil {
		return types.AppInfo{}, fmt.Errorf("shelfd returned no info for %s", name)
	}
	return *env.Info, nil
}

// Add registers the executable at path. A relative path is resolved
// against this process's working directory, not the daemon's.
func (r *Remote) Add(ctx context.Context, path string) (types.App, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.App{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	path = abs
	env, err := r.call(ctx, http.MethodPost, "/apps", "", map[string]string{"path": path}, nil)
	return appOf(env, err)
}

func (r *Remote) Remove(ctx context.Context, name string, purge bool) (types.App, error) {
	env, err := r.call(ctx, http.MethodDelete, appPath(name), name, nil,
		map[string]string{"purge": strconv.FormatBool(purge)})
	return appOf(env, err)
}

func (r *Remote) Rename(ctx context.Context, name, newName string) (types.App, error) {
	env, err := r.call(ctx, http.MethodPost, appPath(name)+"/rename", name,
		map[string]string{"name": newName}, nil)
	return appOf(env, err)
}

func (r *Remote) SetFavorite(ctx context.Context, name string, favorite bool) (types.App, error) {
	env, err := r.call(ctx, http.MethodPut, appPath(name)+"/favorite", name,
		map[string]bool{"favorite": favorite}, nil)
	return appOf(env, err)
}

func (r *Remote) Launch(ctx context.Context, name string, elevated bool) (*types.LaunchResult, error) {
	env, err := r.call(ctx, http.MethodPost, appPath(name)+"/launch", name,
		map[string]bool{"elevated": elevated}, nil)
	if err != nil {
		return nil, err
	}
	if env.Launch == nil {
		return nil, fmt.Errorf("shelfd returned no launch result for %s", name)
	}
	return env.Launch, nil
}

func (r *Remote) Refresh(ctx context.Context) (types.ReconcileResult, error) {
	env, err := r.call(ctx, http.MethodPost, "/refresh", "", nil, nil)
	if err != nil {
		return types.ReconcileResult{}, err
	}
	if env.Result == nil {
		return types.ReconcileResult{}, nil
	}
	return *env.Result, nil
}

func (r *Remote) Stats(ctx context.Context) (types.RegistryStats, error) {
	env, err := r.call(ctx, http.MethodGet, "/stats", "", nil, nil)
	if err != nil {
		return types.RegistryStats{}, err
	}
	if env.Stats == nil {
		return types.RegistryStats{}, nil
	}
	return *env.Stats, nil
}

// call performs one request through the breaker. name is used to rebuild
// launch errors.
func (r *Remote) call(ctx context.Context, method, path, name string, body any, query map[string]string) (*envelope, error) {
	return resilience.Call(r.breaker, func() (*envelope, error) {
		var env envelope
		req := r.resty.R().
			SetContext(ctx).
			SetResult(&env).
			SetError(&env)
		if body != nil {
			req.SetBody(body)
		}
		if len(query) > 0 {
			req.SetQueryParams(query)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("shelfd at %s unreachable: %w", r.base, err)
		}
		if resp.IsError() {
			if env.Kind == "" {
				return nil, fmt.Errorf("shelfd returned %s", resp.Status())
			}
			return nil, app.ErrorFromKind(env.Kind, env.Error, name)
		}
		return &env, nil
	})
}

func appOf(env *envelope, err error) (types.App, error) {
	if err != nil {
		return types.App{}, err
	}
	if env.App == nil {
		return types.App{}, fmt.Errorf("shelfd returned no app")
	}
	return *env.App, nil
}

func appPath(name string) string {
	return "/apps/" + url.PathEscape(name)
}

// isFailure counts only transport and server faults against the breaker.
// Domain outcomes such as not_found are answers, not outages.
func isFailure(err error) bool {
	if err == nil {
		return false
	}
	kind := app.ErrorKind(err)
	return kind == app.KindInternal || kind == app.KindUnavailable
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}
