package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// Client talks to the MediaWiki action API of client projects and the
// central knowledge base. One Client serves all hosts; cookies and CSRF
// tokens are tracked per host.
type Client struct {
	httpClient *http.Client
	cfg        *config.Config
	logger     *slog.Logger

	// baseURL overrides the https://<host> scheme prefix in tests.
	baseURL func(host string) string

	mu       sync.Mutex
	csrf     map[string]string
	loggedIn map[string]bool
}

// NewClient creates a Client with a fresh cookie jar.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Jar: jar},
		cfg:        cfg,
		logger:     logger,
		baseURL:    func(host string) string { return "https://" + host },
		csrf:       make(map[string]string),
		loggedIn:   make(map[string]bool),
	}, nil
}

// apiEnvelope is the common part of every action API response.
type apiEnvelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (e *apiEnvelope) apiError() error {
	if e.Error == nil {
		return nil
	}
	return &APIError{Code: e.Error.Code, Info: e.Error.Info}
}

// get performs a read request with retry on transport failures. API-level
// errors are returned without retry: the API answered, it just said no.
func (c *Client) get(ctx context.Context, host string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	endpoint := c.baseURL(host) + "/w/api.php?" + params.Encode()

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", host, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("request %s: http status %d", host, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}, backoff.WithMaxTries(3))
	if err != nil {
		return err
	}
	return decodeResponse(body, out)
}

// post performs a write request. No retry: edits must not be replayed.
func (c *Client) post(ctx context.Context, host string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL(host)+"/w/api.php", strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: http status %d", host, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response of %s: %w", host, err)
	}
	return decodeResponse(body, out)
}

// decodeResponse unmarshals an API response and surfaces its error member.
func decodeResponse(body []byte, out any) error {
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parse api response: %w", err)
	}
	if err := envelope.apiError(); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse api response: %w", err)
	}
	return nil
}

// Namespaces fetches the namespace table of a project, including aliases.
// It implements model.NamespaceResolver.
func (c *Client) Namespaces(ctx context.Context, host string) ([]model.Namespace, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")
	params.Set("siprop", "namespaces|namespacealiases")

	var response struct {
		Query struct {
			Namespaces map[string]struct {
				ID        int    `json:"id"`
				Name      string `json:"name"`
				Canonical string `json:"canonical"`
			} `json:"namespaces"`
			NamespaceAliases []struct {
				ID    int    `json:"id"`
				Alias string `json:"alias"`
			} `json:"namespacealiases"`
		} `json:"query"`
	}
	if err := c.get(ctx, host, params, &response); err != nil {
		return nil, fmt.Errorf("fetch namespaces of %s: %w", host, err)
	}

	aliases := make(map[int][]string)
	for _, a := range response.Query.NamespaceAliases {
		aliases[a.ID] = append(aliases[a.ID], a.Alias)
	}

	namespaces := make([]model.Namespace, 0, len(response.Query.Namespaces))
	for _, ns := range response.Query.Namespaces {
		namespaces = append(namespaces, model.Namespace{
			ID:        ns.ID,
			Local:     ns.Name,
			Canonical: ns.Canonical,
			Aliases:   aliases[ns.ID],
		})
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i].ID < namespaces[j].ID })
	return namespaces, nil
}

// pageInfo is the per-page result of an info query.
type pageInfo struct {
	Title    string `json:"title"`
	Missing  bool   `json:"missing"`
	Invalid  bool   `json:"invalid"`
	Redirect bool   `json:"redirect"`
	PageProps struct {
		WikibaseItem string `json:"wikibase_item"`
	} `json:"pageprops"`
}

// queryPage runs a prop=info|pageprops query for one title.
func (c *Client) queryPage(ctx context.Context, host, title string) (pageInfo, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "info|pageprops")
	params.Set("ppprop", "wikibase_item")
	params.Set("titles", title)

	var response struct {
		Query struct {
			Pages []pageInfo `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, host, params, &response); err != nil {
		return pageInfo{}, fmt.Errorf("query page %q on %s: %w", title, host, err)
	}
	if len(response.Query.Pages) == 0 {
		return pageInfo{}, fmt.Errorf("query page %q on %s: empty page list", title, host)
	}

	page := response.Query.Pages[0]
	if page.Invalid {
		return pageInfo{}, fmt.Errorf("query page %q on %s: %w", title, host, ErrBadTitle)
	}
	return page, nil
}

// PageExists reports whether the page exists on the project.
func (c *Client) PageExists(ctx context.Context, host, title string) (bool, error) {
	page, err := c.queryPage(ctx, host, title)
	if err != nil {
		return false, err
	}
	return !page.Missing, nil
}

// PageIsRedirect reports whether the page exists and is a redirect.
func (c *Client) PageIsRedirect(ctx context.Context, host, title string) (bool, error) {
	page, err := c.queryPage(ctx, host, title)
	if err != nil {
		return false, err
	}
	return !page.Missing && page.Redirect, nil
}

// PageItem returns the item id the page is connected to locally, or empty
// when the page carries none.
func (c *Client) PageItem(ctx context.Context, host, title string) (string, error) {
	page, err := c.queryPage(ctx, host, title)
	if err != nil {
		return "", err
	}
	if page.Missing {
		return "", nil
	}
	return page.PageProps.WikibaseItem, nil
}

// LiveTitle returns the page's title as the project spells it today. Title
// normalization applied by the API is reflected in the result.
func (c *Client) LiveTitle(ctx context.Context, host, title string) (string, error) {
	page, err := c.queryPage(ctx, host, title)
	if err != nil {
		return "", err
	}
	return page.Title, nil
}

// LogEventIDs resolves candidate log-entry ids for a title via the public
// API, the cheap first step on projects whose logging tables are too large
// for title scans.
func (c *Client) LogEventIDs(ctx context.Context, host, logType, action, title string) ([]int64, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "logevents")
	params.Set("leprop", "ids")
	params.Set("leaction", logType+"/"+action)
	params.Set("letitle", title)

	var response struct {
		Query struct {
			LogEvents []struct {
				LogID int64 `json:"logid"`
			} `json:"logevents"`
		} `json:"query"`
	}
	if err := c.get(ctx, host, params, &response); err != nil {
		return nil, fmt.Errorf("fetch log-event ids for %q on %s: %w", title, host, err)
	}

	ids := make([]int64, 0, len(response.Query.LogEvents))
	for _, e := range response.Query.LogEvents {
		ids = append(ids, e.LogID)
	}
	return ids, nil
}

// ItemSitelink returns the title the item links to on the given project,
// with found=false when the item is missing, redirected, or carries no
// such sitelink.
func (c *Client) ItemSitelink(ctx context.Context, item, siteID string) (string, bool, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", item)
	params.Set("props", "sitelinks")
	params.Set("sitefilter", siteID)
	params.Set("redirects", "no")

	var response struct {
		Entities map[string]struct {
			Missing   json.RawMessage `json:"missing"`
			Sitelinks map[string]struct {
				Title string `json:"title"`
			} `json:"sitelinks"`
		} `json:"entities"`
	}
	if err := c.get(ctx, c.cfg.RepoHost, params, &response); err != nil {
		return "", false, fmt.Errorf("fetch sitelinks of %s: %w", item, err)
	}

	entity, ok := response.Entities[item]
	if !ok || entity.Missing != nil {
		return "", false, nil
	}
	link, ok := entity.Sitelinks[siteID]
	if !ok {
		return "", false, nil
	}
	return link.Title, true, nil
}
