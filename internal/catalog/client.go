// Package catalog implements the REST client for the external metadata
// catalog. The core compilers only see the api/igc.CatalogClient interface;
// session handling, paging, rate limiting and retries all live here.
package catalog

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// basePath is the catalog's REST root.
const basePath = "/ibm/iis/igc-rest/v1"

// termProperties is the attribute set materialized on every term search hit.
var termProperties = []string{
	"name", "short_description", "long_description", "category_path",
	"has_a_term", "has_types", "is_a_type_of", "related_terms",
	"assigned_assets", "custom_Multiplicity",
}

// dataClassProperties is the attribute set for data class hits.
var dataClassProperties = []string{
	"name", "data_type_filter_elements_enum", "assigned_terms",
}

// Ensures Client implements the collaborator interface at compile time.
var _ igc.CatalogClient = (*Client)(nil)

// Client is a session-holding catalog REST client. It is safe for
// concurrent use; the rate limiter serializes request admission.
type Client struct {
	log      *zap.Logger
	http     *http.Client
	base     *url.URL
	username string
	password string
	limiter  *rate.Limiter
	pageSize int
}

// credentials holds the auth-file shape.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// New builds a client from configuration. Explicit username/password win;
// otherwise the auth file (with ~ expansion) supplies them.
func New(cfg config.CatalogConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL: %w", err)
	}

	username, password := cfg.Username, cfg.Password
	if username == "" && cfg.AuthFile != "" {
		creds, err := readAuthFile(cfg.AuthFile)
		if err != nil {
			return nil, err
		}
		username, password = creds.Username, creds.Password
	}
	if username == "" {
		return nil, fmt.Errorf("no catalog credentials: set catalog.username or catalog.auth_file")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		log: logger.Named("Catalog"),
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		base:     base,
		username: username,
		password: password,
		limiter:  limiter,
		pageSize: pageSize,
	}, nil
}

func readAuthFile(path string) (*credentials, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand auth file path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse auth file: %w", err)
	}
	return &creds, nil
}

// endpoint joins the REST root with a relative path.
func (c *Client) endpoint(path string) string {
	return c.base.String() + basePath + path
}

// do performs one rate-limited request. A 401 triggers a single retry so an
// expired session cookie re-establishes transparently through basic auth.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.SetBasicAuth(c.username, c.password)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("catalog request failed: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.log.Warn("Session rejected, re-authenticating", zap.String("url", rawURL))
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read catalog response: %w", readErr)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("catalog returned %s for %s %s: %s",
				resp.Status, method, rawURL, snippet(data))
		}
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode catalog response: %w", err)
			}
		}
		return nil
	}
}

// snippet bounds an error body for log-friendly messages.
func snippet(data []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// searchAll walks every page of a search, decoding hits into chunks handed
// to collect.
func (c *Client) searchAll(ctx context.Context, req igc.SearchRequest, collect func(items jsoniter.RawMessage) error) error {
	var page igc.SearchPage
	if err := c.do(ctx, http.MethodPost, c.endpoint("/search/"), req, &page); err != nil {
		return err
	}
	for {
		if len(page.Items) > 0 {
			if err := collect(jsoniter.RawMessage(page.Items)); err != nil {
				return err
			}
		}
		next := page.Paging.Next
		if next == "" {
			return nil
		}
		page = igc.SearchPage{}
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return err
		}
	}
}

// SearchTerms retrieves every business term, optionally scoped to a
// category subtree, with category paths normalized root-to-leaf.
func (c *Client) SearchTerms(ctx context.Context, categoryID string) ([]igc.Term, error) {
	req := igc.SearchRequest{
		Types:      []string{"term"},
		Properties: termProperties,
		PageSize:   c.pageSize,
	}
	if categoryID != "" {
		req.Where = &igc.SearchCondition{
			Operator: "and",
			Conditions: []igc.SearchClause{
				{Property: "category_path", Operator: "=", Value: categoryID},
			},
		}
	}

	var terms []igc.Term
	err := c.searchAll(ctx, req, func(items jsoniter.RawMessage) error {
		var chunk []igc.Term
		if err := json.Unmarshal(items, &chunk); err != nil {
			return fmt.Errorf("failed to decode term page: %w", err)
		}
		for i := range chunk {
			normalizeTerm(&chunk[i])
		}
		terms = append(terms, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Fetched terms from catalog", zap.Int("count", len(terms)))
	return terms, nil
}

// SearchDataClasses retrieves every data class with its native type tags.
func (c *Client) SearchDataClasses(ctx context.Context) ([]igc.DataClass, error) {
	req := igc.SearchRequest{
		Types:      []string{"data_class"},
		Properties: dataClassProperties,
		PageSize:   c.pageSize,
	}

	var classes []igc.DataClass
	err := c.searchAll(ctx, req, func(items jsoniter.RawMessage) error {
		var chunk []igc.DataClass
		if err := json.Unmarshal(items, &chunk); err != nil {
			return fmt.Errorf("failed to decode data class page: %w", err)
		}
		classes = append(classes, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("Fetched data classes from catalog", zap.Int("count", len(classes)))
	return classes, nil
}

// FetchGraph retrieves terms and data classes concurrently; both are needed
// before a generation session can start.
func (c *Client) FetchGraph(ctx context.Context, categoryID string) ([]igc.Term, []igc.DataClass, error) {
	var (
		terms   []igc.Term
		classes []igc.DataClass
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		terms, err = c.SearchTerms(ctx, categoryID)
		return err
	})
	g.Go(func() error {
		var err error
		classes, err = c.SearchDataClasses(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return terms, classes, nil
}

// GetTerm performs a point lookup with the given relationship depth.
func (c *Client) GetTerm(ctx context.Context, id string, depth int) (*igc.Term, error) {
	var term igc.Term
	path := fmt.Sprintf("/assets/%s?depth=%d", url.PathEscape(id), depth)
	if err := c.do(ctx, http.MethodGet, c.endpoint(path), nil, &term); err != nil {
		return nil, err
	}
	normalizeTerm(&term)
	return &term, nil
}

// UpdateAsset applies a partial-attribute patch to one asset.
func (c *Client) UpdateAsset(ctx context.Context, id string, patch igc.Patch) error {
	path := "/assets/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPut, c.endpoint(path), patch, nil)
}

// CreateBundleAssets submits a complete asset bundle in one batch.
func (c *Client) CreateBundleAssets(ctx context.Context, bundle *igc.Bundle) error {
	return c.do(ctx, http.MethodPost, c.endpoint("/bundles/assets"), bundle, nil)
}

// Close logs the session out. Best effort: a failed logout only warns.
func (c *Client) Close(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, c.endpoint("/logout/"), nil, nil); err != nil {
		c.log.Warn("Catalog logout failed", zap.Error(err))
		return err
	}
	return nil
}

// normalizeTerm flips the catalog's leaf-to-root category path into the
// root-to-leaf order every downstream path builder expects, so ordering is
// settled once at the boundary.
func normalizeTerm(term *igc.Term) {
	items := term.CategoryPath.Items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
