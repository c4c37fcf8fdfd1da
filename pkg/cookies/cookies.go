// Package cookies normalizes browser-exported cookie blobs into the forms
// the pipeline consumes: CDP session parameters for a live browser context
// and a Netscape-format flat file for the external downloader.
package cookies

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"xarchive/pkg/logger"
)

// Record is one cookie as exported by browser extensions
type Record struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	ExpirationDate float64 `json:"expirationDate"`
	SameSite       string  `json:"sameSite"`
}

// Parse decodes a raw JSON cookie list into cleaned records. Records
// without a domain are dropped (they cannot be attached to a browser
// session) and individually malformed entries are skipped. A blob that
// cannot be parsed at all yields an empty slice, never an error.
func Parse(raw string, log logger.Logger) []Record {
	if log == nil {
		log = logger.GetLogger()
	}
	if raw == "" {
		return nil
	}

	var rawRecords []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rawRecords); err != nil {
		log.WithError(err).Warn("failed to parse cookie blob")
		return nil
	}

	records := make([]Record, 0, len(rawRecords))
	for _, rr := range rawRecords {
		var rec Record
		if err := json.Unmarshal(rr, &rec); err != nil {
			continue
		}
		if rec.Domain == "" {
			continue
		}
		if rec.Path == "" {
			rec.Path = "/"
		}
		// The session layer only understands Lax here
		rec.SameSite = "Lax"
		records = append(records, rec)
	}

	log.InfoWithFields("cookies loaded", map[string]interface{}{
		"valid": len(records),
		"total": len(rawRecords),
	})
	return records
}

// CookieParams converts records into CDP cookie parameters for session
// attachment.
func CookieParams(records []Record) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(records))
	for _, rec := range records {
		param := &network.CookieParam{
			Name:     rec.Name,
			Value:    rec.Value,
			Domain:   rec.Domain,
			Path:     rec.Path,
			Secure:   rec.Secure,
			HTTPOnly: rec.HTTPOnly,
			SameSite: network.CookieSameSiteLax,
		}
		if rec.ExpirationDate > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(rec.ExpirationDate), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

// CookieString flattens records into a "name=value; ..." header string for
// plain HTTP clients.
func CookieString(records []Record) string {
	pairs := make([]string, 0, len(records))
	for _, rec := range records {
		pairs = append(pairs, rec.Name+"="+rec.Value)
	}
	return strings.Join(pairs, "; ")
}

// RewriteQuarkDomains widens any quark.cn cookie to the .quark.cn parent
// domain so the pan subdomain sees it.
func RewriteQuarkDomains(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if strings.HasSuffix(out[i].Domain, "quark.cn") {
			out[i].Domain = ".quark.cn"
		}
	}
	return out
}

// NetscapeLine renders one record in the classic tab-separated cookie-file
// format: domain, host-only flag, path, secure flag, expiry, name, value.
func NetscapeLine(rec Record) string {
	flag := "FALSE"
	if strings.HasPrefix(rec.Domain, ".") {
		flag = "TRUE"
	}
	secure := "FALSE"
	if rec.Secure {
		secure = "TRUE"
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s",
		rec.Domain, flag, rec.Path, secure, int64(rec.ExpirationDate), rec.Name, rec.Value)
}

// WriteNetscapeFile writes records to path in Netscape cookie-file format
// for the external downloader's --cookies argument.
func WriteNetscapeFile(records []Record, path string) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, rec := range records {
		b.WriteString(NetscapeLine(rec))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}
