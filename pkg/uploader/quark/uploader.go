// Package quark archives files into the Quark cloud drive by driving its
// web UI. The drive exposes no usable upload API, so files go in through
// the page's hidden file input and completion is read off toast messages.
// When the UI stays silent past the poll window the upload is assumed to
// have succeeded; missing a toast is common while the transfer itself
// rarely fails, and the cost of a false failure (re-running the whole
// batch) outweighs a rare silent drop.
package quark

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	errs "xarchive/pkg/errors"
	"xarchive/pkg/logger"
	"xarchive/pkg/uploader"
)

const panURL = "https://pan.quark.cn/list#/list/all"

const (
	selFileInput     = `.ant-upload input[type="file"]`
	selAnyFileInput  = `input[type="file"]`
	selUploadButton  = `button.upload-btn`
	selFileList      = `.ant-table-body`
	selErrorToast    = `.ant-message-error, .upload-error`
	textNewFolder    = "新建文件夹"
	textNew          = "新建"
	textConfirm      = "确 定"
	textConfirmAlt   = "确认"
	textUploadedOK   = "上传成功"
	textUploadedDone = "上传完成"
)

// Page is the slice of browser behavior the uploader needs
type Page interface {
	Navigate(url string) error
	WaitForAny(selectors []string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Count(selector string) (int, error)
	FindText(text string, exact bool) (bool, error)
	ClickText(text string, exact bool) error
	DoubleClickText(text string, exact bool) error
	Click(selector string) error
	FillLast(selector, value string) error
	AttachFile(selector, path string) error
	BodyTextContains(fragment string) (bool, error)
	Text(selector string) (string, error)
	Closed() bool
	Close() error
}

// Uploader is a Quark drive destination instance
type Uploader struct {
	newPage    func() (Page, error)
	page       Page
	remoteRoot string

	pause        time.Duration
	pollTimeout  time.Duration
	pollInterval time.Duration
	log          logger.Logger
}

// New builds an uploader that opens pages on demand through newPage and
// stores every batch in the remoteRoot folder.
func New(newPage func() (Page, error), remoteRoot string, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Uploader{
		newPage:      newPage,
		remoteRoot:   remoteRoot,
		pause:        2 * time.Second,
		pollTimeout:  20 * time.Second,
		pollInterval: 1500 * time.Millisecond,
		log:          log,
	}
}

// Name identifies the destination in logs and summaries
func (u *Uploader) Name() string {
	return "quark"
}

// Upload pushes the batch through the drive's web UI. The page is created
// lazily, reused across files, and closed when the batch ends. All batches
// land flat in the remote root folder; navigation failures degrade to
// uploading into whatever folder the page currently shows.
func (u *Uploader) Upload(ctx context.Context, files []string, username string) (uploader.Summary, error) {
	var summary uploader.Summary

	page, err := u.ensurePage()
	if err != nil {
		return summary, err
	}
	defer u.closePage()

	u.navigateToFolder(page, u.remoteRoot)

	for i, file := range files {
		name := filepath.Base(file)

		if err := ctx.Err(); err != nil {
			summary.Failed += len(files) - i
			return summary, err
		}

		if err := u.uploadSingle(page, file); err != nil {
			u.log.WithError(err).WithField("file", name).Error("upload failed")
			summary.Failed++
		} else {
			summary.Uploaded++
		}

		// Let the UI settle before the next attach
		if i < len(files)-1 {
			time.Sleep(u.pause)
		}
	}

	return summary, nil
}

// ensurePage returns a ready drive page, creating or recreating one as
// needed. A page that never reaches a usable state aborts the batch.
func (u *Uploader) ensurePage() (Page, error) {
	if u.page != nil && !u.page.Closed() {
		return u.page, nil
	}

	page, err := u.newPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open drive page: %w", err)
	}
	if err := page.Navigate(panURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to open drive page: %w", err)
	}
	if err := page.WaitForAny([]string{selUploadButton, selFileList}, 15*time.Second); err != nil {
		page.Close()
		return nil, errs.New(errs.ErrorTypeAuth,
			"quark drive page never became ready, cookies may be stale", 0)
	}

	u.page = page
	return page, nil
}

func (u *Uploader) closePage() {
	if u.page != nil && !u.page.Closed() {
		u.page.Close()
	}
	u.page = nil
}

// navigateToFolder tries to enter (creating if needed) the named folder.
// Every step is best effort; on any failure the page stays where it is and
// the batch lands in the current folder.
func (u *Uploader) navigateToFolder(page Page, name string) {
	found, err := page.FindText(name, true)
	if err == nil && found {
		if err := page.DoubleClickText(name, true); err == nil {
			time.Sleep(u.pause)
			return
		}
	}

	if !u.createFolder(page, name) {
		u.log.WithField("folder", name).Warn("folder navigation failed, uploading to current folder")
		return
	}

	if err := page.DoubleClickText(name, true); err != nil {
		u.log.WithField("folder", name).Warn("cannot enter new folder, uploading to current folder")
		return
	}
	time.Sleep(u.pause)
}

func (u *Uploader) createFolder(page Page, name string) bool {
	clicked := false
	for _, label := range []string{textNewFolder, textNew} {
		if err := page.ClickText(label, false); err == nil {
			clicked = true
			break
		}
	}
	if !clicked {
		return false
	}
	time.Sleep(u.pause / 2)

	if err := page.FillLast(`input`, name); err != nil {
		return false
	}
	for _, label := range []string{textConfirm, textConfirmAlt} {
		if err := page.ClickText(label, false); err == nil {
			time.Sleep(u.pause)
			return true
		}
	}
	return false
}

// uploadSingle attaches one file to the page's file input and waits for
// the outcome
func (u *Uploader) uploadSingle(page Page, file string) error {
	if err := page.AttachFile(selFileInput, file); err != nil {
		if err := page.AttachFile(selAnyFileInput, file); err != nil {
			return fmt.Errorf("no usable file input on drive page: %w", err)
		}
	}
	return u.waitForCompletion(page, filepath.Base(file))
}

// waitForCompletion polls the page for a success or failure toast. Silence
// past the poll window counts as success.
func (u *Uploader) waitForCompletion(page Page, name string) error {
	time.Sleep(u.pollInterval)

	deadline := time.Now().Add(u.pollTimeout)
	for time.Now().Before(deadline) {
		for _, marker := range []string{textUploadedOK, textUploadedDone} {
			if ok, err := page.BodyTextContains(marker); err == nil && ok {
				return nil
			}
		}

		// The filename showing up in the file list also counts; long
		// names get truncated by the UI, so only the first characters
		// of the stem are matched
		if stem := fileStem(name); stem != "" {
			if len(stem) > 15 {
				stem = stem[:15]
			}
			if ok, err := page.BodyTextContains(stem); err == nil && ok {
				return nil
			}
		}

		if n, err := page.Count(selErrorToast); err == nil && n > 0 {
			msg, _ := page.Text(selErrorToast)
			if strings.Contains(msg, "失败") {
				return fmt.Errorf("drive reported upload failure: %s", msg)
			}
		}

		time.Sleep(u.pollInterval)
	}

	u.log.WithField("file", name).Warn("no completion signal from drive, assuming success")
	return nil
}

func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
