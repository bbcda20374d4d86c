// ABOUTME: Dropbox implementation of the platform.Archiver contract.
// ABOUTME: Uploads under /<folder>/<filename> in overwrite mode, notifications muted.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// Dropbox archives documents to a Dropbox app folder.
type Dropbox struct {
	client files.Client
	logger *slog.Logger
}

// NewDropbox creates an archiver authenticated with the given access token.
func NewDropbox(token string, logger *slog.Logger) *Dropbox {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := dropbox.Config{
		Token:    token,
		LogLevel: dropbox.LogOff,
	}
	return &Dropbox{
		client: files.New(cfg),
		logger: logger.With("component", "storage"),
	}
}

// Upload stores contents at /<folder>/<filename>, replacing any previous
// copy. The SDK does not accept a context; cancellation is honored only
// before the call starts.
func (d *Dropbox) Upload(ctx context.Context, folder, filename string, contents []byte) error {
	if err := ctx.Err(); err != nil {
		return platform.NewError(platform.KindStorage, "", err)
	}

	arg := files.NewUploadArg(fmt.Sprintf("/%s/%s", folder, filename))
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: "overwrite"}}
	arg.Mute = true

	if _, err := d.client.Upload(arg, bytes.NewReader(contents)); err != nil {
		d.logger.Error("archive upload failed",
			"folder", folder,
			"filename", filename,
			"error", err)
		return platform.NewError(platform.KindStorage, "", err)
	}

	d.logger.Info("document archived",
		"folder", folder,
		"filename", filename,
		"bytes", len(contents))
	return nil
}
