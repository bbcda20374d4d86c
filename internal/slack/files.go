// ABOUTME: File operations of the Slack adapter.
// ABOUTME: Metadata lookup, private downloads, deletion, and typed channel listings.

package slack

import (
	"bytes"
	"sort"

	"context"

	slackapi "github.com/slack-go/slack"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// GetFileMetadata returns metadata for an uploaded file.
func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (platform.FileMeta, error) {
	var raw *slackapi.File
	err := c.withRetry(ctx, func() error {
		var callErr error
		raw, _, _, callErr = c.access.GetFileInfoContext(ctx, fileID, 0, 0)
		return callErr
	})
	if err != nil {
		return platform.FileMeta{}, err
	}
	return toFileMeta(*raw), nil
}

// DownloadFileBytes fetches the private content of a file through the
// authenticated download path.
func (c *Client) DownloadFileBytes(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.withRetry(ctx, func() error {
		buf.Reset()
		return c.access.GetFileContext(ctx, url, &buf)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeleteFile removes the file object from the platform. Deleting an
// already-deleted file surfaces as a benign reject.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.mutate(ctx, func() error {
		return c.access.DeleteFileContext(ctx, fileID)
	})
}

// ListChannelFiles returns the files of the given platform type shared in
// a channel, ordered by creation time ascending.
func (c *Client) ListChannelFiles(ctx context.Context, channelID, filetype string) ([]platform.FileMeta, error) {
	var out []platform.FileMeta
	page := 1
	for {
		var files []slackapi.File
		var paging *slackapi.Paging
		err := c.withRetry(ctx, func() error {
			var callErr error
			files, paging, callErr = c.access.GetFilesContext(ctx, slackapi.GetFilesParameters{
				Channel: channelID,
				Types:   filetype + "s", // platform type filter enum: "pdfs", "zips", ...
				Count:   200,
				Page:    page,
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.Filetype != filetype {
				continue
			}
			out = append(out, toFileMeta(f))
		}
		if paging == nil || page >= paging.Pages {
			break
		}
		page++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

func toFileMeta(f slackapi.File) platform.FileMeta {
	return platform.FileMeta{
		ID:          f.ID,
		Name:        f.Name,
		Size:        f.Size,
		Filetype:    f.Filetype,
		Mimetype:    f.Mimetype,
		Created:     f.Created.Time(),
		UserID:      platform.UserID(f.User),
		DownloadURL: f.URLPrivateDownload,
		Channels:    f.Channels,
	}
}
