// Package googlephotos archives files into per-user albums through the
// Google Photos Library API. The upload protocol is two-step: raw bytes
// are exchanged for an opaque upload token, which a batchCreate call then
// attaches to the album.
package googlephotos

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	errs "xarchive/pkg/errors"
	"xarchive/pkg/logger"
	"xarchive/pkg/retry"
	"xarchive/pkg/uploader"
)

const (
	defaultBaseURL  = "https://photoslibrary.googleapis.com/v1"
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	albumPageSize     = 50
	maxCreateAttempts = 3
	rateLimitDelay    = 60 * time.Second
)

// tokenFile mirrors the serialized authorized-user token format
type tokenFile struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Expiry       string `json:"expiry"`
}

// Client is a Google Photos destination instance. The album cache is
// instance-scoped: a title resolves to the same id for the client's whole
// lifetime.
type Client struct {
	httpClient *http.Client
	baseURL    string
	albums     map[string]string
	backoff    retry.BackoffStrategy
	log        logger.Logger
}

// New builds a client from a base64-encoded token file
func New(ctx context.Context, tokenBase64 string, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(tokenBase64))
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if tf.Token == "" && tf.RefreshToken == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "token file carries no usable token", 0)
	}

	tokenURL := tf.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	token := &oauth2.Token{
		AccessToken:  tf.Token,
		RefreshToken: tf.RefreshToken,
	}
	if tf.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, tf.Expiry); err == nil {
			token.Expiry = expiry
		}
	}

	log.Info("google photos client initialized")
	return &Client{
		httpClient: conf.Client(ctx, token),
		baseURL:    defaultBaseURL,
		albums:     make(map[string]string),
		backoff:    &retry.FixedBackoff{Delay: rateLimitDelay},
		log:        log,
	}, nil
}

// Name identifies the destination in logs and summaries
func (c *Client) Name() string {
	return "google_photos"
}

// Upload pushes the batch into the user's X_Archive album. One album per
// target user, not per day.
func (c *Client) Upload(ctx context.Context, files []string, username string) (uploader.Summary, error) {
	var summary uploader.Summary
	albumTitle := "X_Archive_" + username

	c.log.InfoWithFields("uploading batch to google photos", map[string]interface{}{
		"album": albumTitle,
		"files": len(files),
	})

	for _, file := range files {
		if err := c.uploadFile(ctx, file, albumTitle); err != nil {
			c.log.WithError(err).WithField("file", filepath.Base(file)).Error("upload failed")
			summary.Failed++
			continue
		}
		c.log.WithField("file", filepath.Base(file)).Info("uploaded")
		summary.Uploaded++
	}

	return summary, nil
}

func (c *Client) uploadFile(ctx context.Context, file, albumTitle string) error {
	albumID, err := c.getOrCreateAlbum(ctx, albumTitle)
	if err != nil {
		return err
	}

	uploadToken, err := c.uploadBytes(ctx, file)
	if err != nil {
		return err
	}

	return c.createMediaItem(ctx, albumID, filepath.Base(file), albumTitle, uploadToken)
}

type album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// getOrCreateAlbum resolves an album id by title, creating the album when
// absent. The API only lists albums created by this client identity.
func (c *Client) getOrCreateAlbum(ctx context.Context, title string) (string, error) {
	if id, ok := c.albums[title]; ok {
		return id, nil
	}

	listURL := fmt.Sprintf("%s/albums?pageSize=%d&excludeNonAppCreatedData=true", c.baseURL, albumPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("album listing failed: %v", err), 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("album listing returned HTTP %d", resp.StatusCode)
	}

	var listResult struct {
		Albums []album `json:"albums"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResult); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("bad album listing: %v", err), 0)
	}
	for _, a := range listResult.Albums {
		if a.Title == title {
			c.albums[title] = a.ID
			return a.ID, nil
		}
	}

	c.log.WithField("album", title).Info("creating album")
	body, _ := json.Marshal(map[string]interface{}{
		"album": map[string]string{"title": title},
	})
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/albums", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err = c.httpClient.Do(req)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("album creation failed: %v", err), 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("album creation returned HTTP %d", resp.StatusCode)
	}

	var created album
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("bad album creation response: %v", err), 0)
	}
	if created.ID == "" {
		return "", fmt.Errorf("album creation response carries no id")
	}

	c.albums[title] = created.ID
	return created.ID, nil
}

// uploadBytes streams the file's raw bytes and returns the upload token
func (c *Client) uploadBytes(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-File-Name", filepath.Base(file))
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("byte upload failed: %v", err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("byte upload returned HTTP %d: %s", resp.StatusCode, body)
	}
	// The token comes back as plain text
	return string(body), nil
}

// createMediaItem associates an upload token with the album. 429 responses
// retry on a fixed cool-down; success is determined by the per-item status
// message, since a 200 response can still carry a per-item failure.
func (c *Client) createMediaItem(ctx context.Context, albumID, fileName, albumTitle, uploadToken string) error {
	op := func() error {
		body, _ := json.Marshal(map[string]interface{}{
			"albumId": albumID,
			"newMediaItems": []map[string]interface{}{
				{
					"description": fmt.Sprintf("Archived from %s automatically.", albumTitle),
					"simpleMediaItem": map[string]string{
						"fileName":    fileName,
						"uploadToken": uploadToken,
					},
				},
			},
		})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mediaItems:batchCreate", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("batch create failed: %v", err), 0)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return errs.New(errs.ErrorTypeRateLimit, "media item association throttled", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("batch create returned HTTP %d", resp.StatusCode)
		}

		var result struct {
			NewMediaItemResults []struct {
				Status struct {
					Message string `json:"message"`
				} `json:"status"`
			} `json:"newMediaItemResults"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return errs.New(errs.ErrorTypeParsing, fmt.Sprintf("bad batch create response: %v", err), 0)
		}
		if len(result.NewMediaItemResults) == 0 {
			return fmt.Errorf("batch create response carries no item results")
		}
		if msg := result.NewMediaItemResults[0].Status.Message; msg != "Success" {
			return fmt.Errorf("media item rejected: %s", msg)
		}
		return nil
	}

	return retry.Do(op, &retry.Config{
		MaxAttempts: maxCreateAttempts,
		Backoff:     c.backoff,
		RetryIf:     errs.IsRateLimit,
		Context:     ctx,
		Logger:      c.log,
	})
}
