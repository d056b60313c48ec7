// Package names fetches the thematic word list used to name presets.
package names

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source supplies candidate preset names.
type Source interface {
	Fetch(ctx context.Context) ([]string, error)
}

// listResponse is the shape of a 5e API list endpoint.
type listResponse struct {
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
}

const maxParallelFetches = 4

// HTTPSource collects names from several list endpoints of a JSON API.
type HTTPSource struct {
	baseURL    string
	endpoints  []string
	httpClient *http.Client
}

// NewHTTPSource creates a source that queries baseURL+endpoint for every endpoint.
// A nil client uses http.DefaultClient; the caller bounds the fetch through ctx.
func NewHTTPSource(baseURL string, endpoints []string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HTTPSource{
		baseURL:    baseURL,
		endpoints:  endpoints,
		httpClient: client,
	}
}

// Fetch queries the endpoints concurrently, at most maxParallelFetches at a time,
// and returns the union of their names. Endpoints that fail or answer with
// anything but 200 are skipped. Cancellation of ctx stops the remaining fetches;
// whatever was collected before that is still returned. An error is returned
// only when nothing usable was collected.
func (s *HTTPSource) Fetch(ctx context.Context) ([]string, error) {
	var (
		mu      sync.Mutex
		results = make([][]string, len(s.endpoints))
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, endpoint := range s.endpoints {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			names, err := s.fetchEndpoint(gctx, endpoint)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("endpoint", endpoint).Msg("Name endpoint failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = names
			return nil
		})
	}
	waitErr := g.Wait()

	if len(s.endpoints) > 0 && len(errs) == len(s.endpoints) {
		return nil, errors.Join(errs...)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, names := range results {
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	if len(out) == 0 && waitErr != nil {
		return nil, fmt.Errorf("name fetch interrupted: %w", waitErr)
	}
	return out, nil
}

func (s *HTTPSource) fetchEndpoint(ctx context.Context, endpoint string) ([]string, error) {
	target, err := url.JoinPath(s.baseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", target, err)
	}

	names := make([]string, 0, len(body.Results))
	for _, r := range body.Results {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

// Load runs a one-shot fetch bounded by timeout. Any error, timeout or
// cancellation yields an empty list; the failure is only logged.
func Load(ctx context.Context, src Source, timeout time.Duration) []string {
	if src == nil {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	names, err := src.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Failed to load preset names, continuing with an empty pool")
		return nil
	}
	if ctx.Err() != nil {
		log.Warn().Err(ctx.Err()).Msg("Preset name load interrupted, continuing with an empty pool")
		return nil
	}

	log.Info().Int("names", len(names)).Dur("elapsed", time.Since(start)).Msg("Preset names loaded")
	return names
}
