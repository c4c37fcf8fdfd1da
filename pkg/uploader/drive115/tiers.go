package drive115

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type tierOutcome int

const (
	// tierSuccess ends the chain with the file stored
	tierSuccess tierOutcome = iota
	// tierNext falls through to the following tier
	tierNext
	// tierFatalAuth aborts the whole batch
	tierFatalAuth
)

// uploadTier is one strategy in the fallback chain
type uploadTier interface {
	name() string
	attempt(ctx context.Context, file, folderID string) (tierOutcome, error)
}

// rapidTier tries the hash-only instant upload. It only succeeds when the
// server already holds a copy of the file's content, which is common for
// media reposted across accounts.
type rapidTier struct {
	client *Client
}

func (t *rapidTier) name() string { return "rapid" }

func (t *rapidTier) attempt(ctx context.Context, file, folderID string) (tierOutcome, error) {
	c := t.client

	hash, size, err := fileDigest(file)
	if err != nil {
		return tierNext, err
	}

	body, err := c.postForm(ctx, c.uploadBase+"/4.0/initupload.php", url.Values{
		"filename": {filepath.Base(file)},
		"filesize": {strconv.FormatInt(size, 10)},
		"fileid":   {hash},
		"target":   {"U_1_" + folderID},
	})
	if err != nil {
		return tierNext, err
	}
	if isAuthSignature(string(body)) {
		return tierFatalAuth, fmt.Errorf("rapid upload rejected: %s", body)
	}

	var result struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return tierNext, fmt.Errorf("bad rapid upload response: %w", err)
	}
	if result.Status == 2 {
		return tierSuccess, nil
	}
	return tierNext, fmt.Errorf("content not known to server (status %d)", result.Status)
}

// sampleTier pushes the file through the single-call simplified endpoint
type sampleTier struct {
	client *Client
}

func (t *sampleTier) name() string { return "sample" }

func (t *sampleTier) attempt(ctx context.Context, file, folderID string) (tierOutcome, error) {
	c := t.client

	body, err := c.postMultipart(ctx, c.uploadBase+"/sampleup.php", map[string]string{
		"target":   "U_1_" + folderID,
		"filename": filepath.Base(file),
	}, file)
	if err != nil {
		return tierNext, err
	}
	if isAuthSignature(string(body)) {
		return tierFatalAuth, fmt.Errorf("sample upload rejected: %s", body)
	}

	var result struct {
		State bool `json:"state"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return tierNext, fmt.Errorf("bad sample upload response: %w", err)
	}
	if !result.State {
		return tierNext, fmt.Errorf("sample upload rejected: %s", body)
	}
	return tierSuccess, nil
}

// webTier drives the browser's own two-step protocol: an init call that may
// short-circuit on a known hash, followed by a multipart POST to the storage
// host the init call names. The init call's opaque fields are forwarded
// verbatim; inventing or reordering them makes the storage host reject the
// transfer.
type webTier struct {
	client *Client
}

func (t *webTier) name() string { return "web" }

func (t *webTier) attempt(ctx context.Context, file, folderID string) (tierOutcome, error) {
	c := t.client

	hash, size, err := fileDigest(file)
	if err != nil {
		return tierNext, err
	}

	initBody, err := c.postForm(ctx, c.uploadBase+"/3.0/sampleinitupload.php", url.Values{
		"filename": {filepath.Base(file)},
		"filesize": {strconv.FormatInt(size, 10)},
		"fileid":   {hash},
		"target":   {"U_1_" + folderID},
	})
	if err != nil {
		return tierNext, err
	}
	if isAuthSignature(string(initBody)) {
		return tierFatalAuth, fmt.Errorf("upload init rejected: %s", initBody)
	}

	var initResult struct {
		Status   int    `json:"status"`
		Host     string `json:"host"`
		Object   string `json:"object"`
		Callback string `json:"callback"`
	}
	if err := json.Unmarshal(initBody, &initResult); err != nil {
		return tierNext, fmt.Errorf("bad upload init response: %w", err)
	}

	switch {
	case initResult.Status == 2:
		// Server already holds this content
		return tierSuccess, nil
	case initResult.Status == 1 && initResult.Host != "":
	default:
		return tierNext, fmt.Errorf("upload init refused (status %d): %s", initResult.Status, initBody)
	}

	body, err := c.postMultipart(ctx, initResult.Host, map[string]string{
		"target":   "U_1_" + folderID,
		"fileid":   hash,
		"filename": filepath.Base(file),
		"filesize": strconv.FormatInt(size, 10),
		"object":   initResult.Object,
		"callback": initResult.Callback,
	}, file)
	if err != nil {
		return tierNext, err
	}
	if isAuthSignature(string(body)) {
		return tierFatalAuth, fmt.Errorf("storage host rejected: %s", body)
	}

	var result struct {
		State bool `json:"state"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return tierNext, fmt.Errorf("bad storage host response: %w", err)
	}
	if !result.State {
		return tierNext, fmt.Errorf("storage host rejected: %s", body)
	}
	return tierSuccess, nil
}

// postMultipart sends form fields plus the file content as a multipart POST
func (c *Client) postMultipart(ctx context.Context, rawURL string, fields map[string]string, file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

// fileDigest returns the uppercase SHA-1 hex and size of a file
func fileDigest(file string) (string, int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hasher := sha1.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return strings.ToUpper(fmt.Sprintf("%x", hasher.Sum(nil))), size, nil
}
