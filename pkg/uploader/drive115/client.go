// Package drive115 archives files into the 115 cloud drive through its
// cookie-authenticated web API. Uploads run through a fixed fallback chain
// of three tiers; folder ids are resolved once per batch and cached for
// the client's lifetime.
package drive115

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"xarchive/pkg/cookies"
	errs "xarchive/pkg/errors"
	"xarchive/pkg/logger"
	"xarchive/pkg/uploader"
)

const (
	defaultAPIBase    = "https://webapi.115.com"
	defaultUploadBase = "https://uplb.115.com"

	rootFolderID   = "0"
	folderPageSize = 1000
)

// Client is a 115 drive destination instance
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
	cookie     string
	userAgent  string
	remoteRoot string
	limiter    *rate.Limiter

	// folders caches (parent, name) -> id for the client's lifetime;
	// entries are never invalidated mid-run
	folders map[string]string

	tiers []uploadTier
	log   logger.Logger
}

// New builds a client from a raw cookie blob and validates the login by
// listing the drive root.
func New(ctx context.Context, cookiesRaw, remoteRoot string, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	records := cookies.Parse(cookiesRaw, log)
	cookieStr := cookies.CookieString(records)
	if cookieStr == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "cannot parse 115 cookies", 0)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
		cookie:     cookieStr,
		userAgent:  "Mozilla/5.0",
		remoteRoot: remoteRoot,
		limiter:    rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
		folders:    make(map[string]string),
		log:        log,
	}
	c.tiers = []uploadTier{
		&rapidTier{client: c},
		&sampleTier{client: c},
		&webTier{client: c},
	}

	// Probe the login before accepting any work
	if _, err := c.listFolder(ctx, rootFolderID, 1); err != nil {
		return nil, fmt.Errorf("115 login validation failed: %w", err)
	}

	log.Info("115 client initialized")
	return c, nil
}

// Name identifies the destination in logs and summaries
func (c *Client) Name() string {
	return "drive_115"
}

// Upload pushes the batch into remoteRoot/username/YYYY-MM-DD. The three
// folder ids are resolved once and reused for every file. A recognized
// credential-expiry signature anywhere fails the whole batch.
func (c *Client) Upload(ctx context.Context, files []string, username string) (uploader.Summary, error) {
	var summary uploader.Summary

	c.log.InfoWithFields("uploading batch to 115", map[string]interface{}{
		"files": len(files),
	})

	archiveID, err := c.GetOrCreateFolder(ctx, rootFolderID, c.remoteRoot)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve archive folder: %w", err)
	}
	userID, err := c.GetOrCreateFolder(ctx, archiveID, username)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve user folder: %w", err)
	}
	dateID, err := c.GetOrCreateFolder(ctx, userID, time.Now().Format("2006-01-02"))
	if err != nil {
		return summary, fmt.Errorf("failed to resolve date folder: %w", err)
	}

	for _, file := range files {
		name := filepath.Base(file)
		if err := c.uploadWithTiers(ctx, file, dateID); err != nil {
			if errs.IsAuth(err) {
				// The cookie died mid-batch; nothing further can succeed
				summary.Failed++
				return summary, err
			}
			c.log.WithError(err).WithField("file", name).Error("upload failed")
			summary.Failed++
			continue
		}
		c.log.WithField("file", name).Info("uploaded")
		summary.Uploaded++
	}

	return summary, nil
}

// uploadWithTiers runs the fallback chain in fixed order. An auth error
// propagates immediately; any other tier failure falls through to the next
// tier; an exhausted chain fails the file.
func (c *Client) uploadWithTiers(ctx context.Context, file, folderID string) error {
	var lastErr error
	for _, tier := range c.tiers {
		outcome, err := tier.attempt(ctx, file, folderID)
		switch outcome {
		case tierSuccess:
			return nil
		case tierFatalAuth:
			return errs.New(errs.ErrorTypeAuth,
				fmt.Sprintf("115 session expired during upload: %v", err), 0)
		case tierNext:
			c.log.DebugWithFields("upload tier failed, falling through", map[string]interface{}{
				"tier":  tier.name(),
				"file":  filepath.Base(file),
				"error": fmt.Sprint(err),
			})
			lastErr = err
		}
	}
	return fmt.Errorf("all upload tiers exhausted: %w", lastErr)
}

// GetOrCreateFolder resolves a child folder id under parentID, creating
// the folder when no child carries the name. Results are cached per
// (parent, name) pair.
func (c *Client) GetOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	cacheKey := parentID + "/" + name
	if id, ok := c.folders[cacheKey]; ok {
		return id, nil
	}

	entries, err := c.listFolder(ctx, parentID, folderPageSize)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entryName, _ := entry["n"].(string); entryName == name {
			if id, ok := idFromPayload(entry, "cid"); ok {
				c.folders[cacheKey] = id
				return id, nil
			}
		}
	}

	id, err := c.createFolder(ctx, parentID, name)
	if err != nil {
		return "", err
	}
	c.folders[cacheKey] = id
	return id, nil
}

// listFolder enumerates the children of a folder
func (c *Client) listFolder(ctx context.Context, folderID string, limit int) ([]map[string]interface{}, error) {
	listURL := fmt.Sprintf("%s/files?aid=1&cid=%s&offset=0&show_dir=1&limit=%d", c.apiBase, folderID, limit)
	body, err := c.get(ctx, listURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		State bool                     `json:"state"`
		Data  []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("bad folder listing: %v", err), 0)
	}
	if !result.State {
		if isAuthSignature(string(body)) {
			return nil, errs.New(errs.ErrorTypeAuth, "115 rejected the session cookie", 0)
		}
		return nil, fmt.Errorf("folder listing rejected: %s", body)
	}
	return result.Data, nil
}

// createFolder issues the create call and digs the new id out of the
// response. The id's key varies between deployments, so a fixed priority
// list is probed, first inside the data object and then at the top level.
func (c *Client) createFolder(ctx context.Context, parentID, name string) (string, error) {
	body, err := c.postForm(ctx, c.apiBase+"/files/add", url.Values{
		"pid":   {parentID},
		"cname": {name},
	})
	if err != nil {
		return "", err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("bad folder creation response: %v", err), 0)
	}
	if state, _ := result["state"].(bool); !state {
		if isAuthSignature(string(body)) {
			return "", errs.New(errs.ErrorTypeAuth, "115 rejected the session cookie", 0)
		}
		return "", fmt.Errorf("folder creation rejected: %s", body)
	}

	if data, ok := result["data"].(map[string]interface{}); ok {
		if id, ok := idFromPayload(data, "cid", "id", "file_id"); ok {
			return id, nil
		}
	}
	if id, ok := idFromPayload(result, "cid", "id", "file_id"); ok {
		return id, nil
	}
	return "", fmt.Errorf("folder creation response carries no id: %s", body)
}

// idFromPayload probes alternate id keys in priority order, tolerating both
// string and numeric encodings
func idFromPayload(payload map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

// isAuthSignature recognizes the API's please-log-in-again responses
func isAuthSignature(body string) bool {
	return strings.Contains(body, "请重新登录") ||
		strings.Contains(body, `"errno":99`) ||
		strings.Contains(body, `"errno": 99`)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, rawURL string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("115 request failed: %v", err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if errs.IsRetryableStatusCode(resp.StatusCode) {
			return nil, errs.New(errs.ErrorTypeServer,
				fmt.Sprintf("115 returned HTTP %d: %s", resp.StatusCode, body), resp.StatusCode)
		}
		return nil, fmt.Errorf("115 returned HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
