package quark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage models the drive page as a bag of visible text plus recorded
// interactions
type fakePage struct {
	navigated  []string
	attached   []string
	clicked    []string
	bodyText   string
	toastText  string
	errToasts  int
	foundTexts map[string]bool
	clickable  map[string]bool
	readyErr   error
	attachErr  error
	closed     bool
}

func (f *fakePage) Navigate(url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) WaitForAny(selectors []string, timeout time.Duration) error { return f.readyErr }

func (f *fakePage) WaitVisible(selector string, timeout time.Duration) error { return nil }

func (f *fakePage) Count(selector string) (int, error) {
	if strings.Contains(selector, "error") {
		return f.errToasts, nil
	}
	return 0, nil
}

func (f *fakePage) FindText(text string, exact bool) (bool, error) {
	return f.foundTexts[text], nil
}

func (f *fakePage) ClickText(text string, exact bool) error {
	if !f.clickable[text] {
		return errors.New("no such element")
	}
	f.clicked = append(f.clicked, text)
	return nil
}

func (f *fakePage) DoubleClickText(text string, exact bool) error {
	if !f.foundTexts[text] {
		return errors.New("no such element")
	}
	f.clicked = append(f.clicked, "dbl:"+text)
	return nil
}

func (f *fakePage) Click(selector string) error { return nil }

func (f *fakePage) FillLast(selector, value string) error { return nil }

func (f *fakePage) AttachFile(selector, path string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, path)
	return nil
}

func (f *fakePage) BodyTextContains(fragment string) (bool, error) {
	return strings.Contains(f.bodyText, fragment), nil
}

func (f *fakePage) Text(selector string) (string, error) { return f.toastText, nil }

func (f *fakePage) Closed() bool { return f.closed }

func (f *fakePage) Close() error {
	f.closed = true
	return nil
}

func newTestUploader(page *fakePage) (*Uploader, *int) {
	pages := 0
	u := New(func() (Page, error) {
		pages++
		return page, nil
	}, "Twitter_Archive", nil)
	u.pause = 0
	u.pollTimeout = 30 * time.Millisecond
	u.pollInterval = time.Millisecond
	return u, &pages
}

func writeTestFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	return path
}

func TestUploadSuccessToast(t *testing.T) {
	page := &fakePage{bodyText: "上传成功"}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Len(t, page.attached, 1)
	assert.Contains(t, page.navigated[0], "pan.quark.cn")
	assert.True(t, page.closed, "page must be closed at batch end")
}

func TestUploadFilenameInListCountsAsSuccess(t *testing.T) {
	page := &fakePage{bodyText: "media 2026-08-29 12:00"}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "media.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
}

func TestUploadSilenceIsOptimisticSuccess(t *testing.T) {
	page := &fakePage{}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
}

func TestUploadLongFilenameMatchesTruncatedListing(t *testing.T) {
	// The drive UI truncates long names in the file list, so only the
	// first 15 characters of the stem can be matched. A stale error
	// toast must not override a positive listing match.
	page := &fakePage{
		bodyText:  "very_long_media… 2026-08-29 12:00",
		errToasts: 1,
		toastText: "上传失败：网络错误",
	}
	u, _ := newTestUploader(page)

	files := []string{writeTestFile(t, "very_long_media_filename_20260829.jpg")}
	summary, err := u.Upload(context.Background(), files, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
}

func TestUploadEmptyErrorToastIsOptimisticSuccess(t *testing.T) {
	// Toast elements may linger with no text; only 失败 in the toast
	// counts as a real failure
	page := &fakePage{errToasts: 1, toastText: ""}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
}

func TestUploadErrorToastCountsFailure(t *testing.T) {
	page := &fakePage{errToasts: 1, toastText: "上传失败：网络错误"}
	u, _ := newTestUploader(page)

	files := []string{writeTestFile(t, "a.jpg"), writeTestFile(t, "b.jpg")}
	summary, err := u.Upload(context.Background(), files, "alice")
	require.NoError(t, err, "per-file failures must not abort the batch")
	assert.Equal(t, 0, summary.Uploaded)
	assert.Equal(t, 2, summary.Failed)
}

func TestUploadUnreadyPageAbortsBatch(t *testing.T) {
	page := &fakePage{readyErr: errors.New("timeout")}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.Error(t, err)
	assert.Equal(t, 0, summary.Uploaded)
	assert.True(t, page.closed, "unusable page must be closed")
}

func TestUploadRecreatesClosedPage(t *testing.T) {
	page := &fakePage{bodyText: "上传成功"}
	u, pages := newTestUploader(page)

	_, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, *pages)

	// The page was closed at batch end; a second batch must open a new one
	page.closed = false // the returned fake gets reused
	_, err = u.Upload(context.Background(), []string{writeTestFile(t, "b.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, *pages)
}

func TestUploadEntersExistingFolder(t *testing.T) {
	page := &fakePage{
		bodyText:   "上传成功",
		foundTexts: map[string]bool{"Twitter_Archive": true},
	}
	u, _ := newTestUploader(page)

	_, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Contains(t, page.clicked, "dbl:Twitter_Archive")
}

func TestUploadTargetsRemoteRootNotUserFolder(t *testing.T) {
	// Even when a folder named after the account exists alongside the
	// archive root, batches for every user land flat in the root folder
	page := &fakePage{
		bodyText:   "上传成功",
		foundTexts: map[string]bool{"Twitter_Archive": true, "alice": true},
	}
	u, _ := newTestUploader(page)

	_, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Contains(t, page.clicked, "dbl:Twitter_Archive")
	assert.NotContains(t, page.clicked, "dbl:alice")
}

func TestUploadFolderNavigationDegradesToCurrentFolder(t *testing.T) {
	// No folder exists and nothing is clickable: navigation gives up but
	// the upload itself still runs
	page := &fakePage{bodyText: "上传成功"}
	u, _ := newTestUploader(page)

	summary, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Len(t, page.attached, 1)
}

func TestUploadCreatesFolderWhenMissing(t *testing.T) {
	page := &fakePage{
		bodyText:  "上传成功",
		clickable: map[string]bool{"新建文件夹": true, "确 定": true},
	}
	u, _ := newTestUploader(page)

	_, err := u.Upload(context.Background(), []string{writeTestFile(t, "a.jpg")}, "alice")
	require.NoError(t, err)
	assert.Contains(t, page.clicked, "新建文件夹")
	assert.Contains(t, page.clicked, "确 定")
}
