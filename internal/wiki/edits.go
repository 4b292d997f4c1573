package wiki

import (
	"context"
	"fmt"
	"net/url"
)

// ensureLogin performs the bot-password login flow against a host once and
// caches the resulting CSRF token. Subsequent edits on the same host reuse
// the session cookie and token.
func (c *Client) ensureLogin(ctx context.Context, host string) (string, error) {
	if c.cfg.APIUser == "" || c.cfg.APIPassword == "" {
		return "", ErrNoCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if token, ok := c.csrf[host]; ok && c.loggedIn[host] {
		return token, nil
	}

	loginToken, err := c.fetchToken(ctx, host, "login")
	if err != nil {
		return "", fmt.Errorf("fetch login token from %s: %w", host, err)
	}

	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", c.cfg.APIUser)
	params.Set("lgpassword", c.cfg.APIPassword)
	params.Set("lgtoken", loginToken)

	var response struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	if err := c.post(ctx, host, params, &response); err != nil {
		return "", fmt.Errorf("login to %s: %w", host, err)
	}
	if response.Login.Result != "Success" {
		return "", fmt.Errorf("login to %s: %s (%s)", host, response.Login.Result, response.Login.Reason)
	}

	csrfToken, err := c.fetchToken(ctx, host, "csrf")
	if err != nil {
		return "", fmt.Errorf("fetch csrf token from %s: %w", host, err)
	}

	c.loggedIn[host] = true
	c.csrf[host] = csrfToken
	c.logger.Debug("logged in", "host", host, "user", c.cfg.APIUser)
	return csrfToken, nil
}

// fetchToken fetches a token of the given type. Callers hold c.mu.
func (c *Client) fetchToken(ctx context.Context, host, tokenType string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", tokenType)

	var response struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := c.get(ctx, host, params, &response); err != nil {
		return "", err
	}
	token := response.Query.Tokens[tokenType+"token"]
	if token == "" {
		return "", fmt.Errorf("empty %s token", tokenType)
	}
	return token, nil
}

// invalidateSession drops the cached login of a host so the next edit
// re-authenticates, e.g. after a badtoken response.
func (c *Client) invalidateSession(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.csrf, host)
	delete(c.loggedIn, host)
}

// setSitelink issues a wbsetsitelink edit against the central knowledge
// base. An empty title removes the sitelink. Returns the resulting
// revision id. A badtoken response invalidates the cached session and the
// edit is retried once with a fresh token; long runs outlive the session
// lifetime of the API.
func (c *Client) setSitelink(ctx context.Context, item, siteID, title, summary string) (int64, error) {
	revID, err := c.setSitelinkOnce(ctx, item, siteID, title, summary)
	if isBadToken(err) {
		c.invalidateSession(c.cfg.RepoHost)
		c.logger.Warn("edit token expired, re-authenticating", "host", c.cfg.RepoHost, "item", item)
		revID, err = c.setSitelinkOnce(ctx, item, siteID, title, summary)
	}
	return revID, err
}

func (c *Client) setSitelinkOnce(ctx context.Context, item, siteID, title, summary string) (int64, error) {
	token, err := c.ensureLogin(ctx, c.cfg.RepoHost)
	if err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("action", "wbsetsitelink")
	params.Set("id", item)
	params.Set("linksite", siteID)
	params.Set("linktitle", title)
	params.Set("summary", summary)
	params.Set("token", token)
	params.Set("bot", "1")

	var response struct {
		Entity struct {
			LastRevID int64 `json:"lastrevid"`
		} `json:"entity"`
		Success int `json:"success"`
	}
	if err := c.post(ctx, c.cfg.RepoHost, params, &response); err != nil {
		return 0, err
	}
	if response.Success != 1 {
		return 0, fmt.Errorf("sitelink edit on %s for %s not confirmed", item, siteID)
	}
	return response.Entity.LastRevID, nil
}

// RemoveSitelink removes the item's sitelink for the given project and
// returns the revision id of the removal edit. A sitelink that is already
// absent surfaces as an error satisfying IsNoSuchSitelink.
func (c *Client) RemoveSitelink(ctx context.Context, item, siteID, summary string) (int64, error) {
	revID, err := c.setSitelink(ctx, item, siteID, "", summary)
	if err != nil {
		return 0, fmt.Errorf("remove sitelink %s of %s: %w", siteID, item, err)
	}
	return revID, nil
}

// SetSitelink points the item's sitelink for the given project at title
// and returns the revision id of the edit.
func (c *Client) SetSitelink(ctx context.Context, item, siteID, title, summary string) (int64, error) {
	revID, err := c.setSitelink(ctx, item, siteID, title, summary)
	if err != nil {
		return 0, fmt.Errorf("set sitelink %s of %s to %q: %w", siteID, item, title, err)
	}
	return revID, nil
}

// TouchPage performs a null edit on a client project page so the project
// re-renders it and refreshes its linked-item bookkeeping. The page
// content is unchanged; nocreate guards against creating a missing page.
// Expired tokens are refreshed and the edit retried once, as in
// setSitelink.
func (c *Client) TouchPage(ctx context.Context, host, title string) error {
	err := c.touchOnce(ctx, host, title)
	if isBadToken(err) {
		c.invalidateSession(host)
		c.logger.Warn("edit token expired, re-authenticating", "host", host, "title", title)
		err = c.touchOnce(ctx, host, title)
	}
	return err
}

func (c *Client) touchOnce(ctx context.Context, host, title string) error {
	token, err := c.ensureLogin(ctx, host)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("action", "edit")
	params.Set("title", title)
	params.Set("appendtext", "")
	params.Set("nocreate", "1")
	params.Set("token", token)

	var response struct {
		Edit struct {
			Result string `json:"result"`
		} `json:"edit"`
	}
	if err := c.post(ctx, host, params, &response); err != nil {
		return fmt.Errorf("touch %q on %s: %w", title, host, err)
	}
	if response.Edit.Result != "Success" {
		return fmt.Errorf("touch %q on %s: result %s", title, host, response.Edit.Result)
	}
	return nil
}
