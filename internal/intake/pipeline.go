// ABOUTME: Intake pipeline construction, event loop, and both stream handlers.
// ABOUTME: One handler invocation per event; idempotency via the dedupe guard.

package intake

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/opsmith-io/wardroom/internal/config"
	"github.com/opsmith-io/wardroom/internal/dedupe"
	"github.com/opsmith-io/wardroom/internal/events"
	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/platform"
)

// Uploader-facing notification texts, always ephemeral in the intake channel.
const (
	msgRenamed      = ":warning: Do not rename the NDA file from its original name, please try again."
	msgUnsigned     = ":warning: The doc does not appear to have been signed. Please verify and try again."
	msgGranted      = ":unlock: You have been granted access to the *#%s* channel."
	msgResubmitted  = ":white_check_mark: NDA has been re-submitted successfully."
	msgStorageError = ":skull: There was an error processing the file, please contact admin."
	msgReceived     = ":inbox_tray: Got your document, processing it now."
)

// Pipeline processes the intake channel's upload events. One Pipeline
// serves the whole process; each event is handled as an independent run.
type Pipeline struct {
	adapter  platform.Adapter
	archiver platform.Archiver
	guard    *dedupe.Guard
	cfg      config.IntakeConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a pipeline. The guard is shared claim state for the two
// event streams and must outlive every in-flight run.
func New(adapter platform.Adapter, archiver platform.Archiver, guard *dedupe.Guard, cfg config.IntakeConfig, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		adapter:  adapter,
		archiver: archiver,
		guard:    guard,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.With("component", "intake"),
	}
}

// Run consumes the bus until the context is cancelled. Each event runs in
// its own goroutine; a failing run never affects its siblings.
func (p *Pipeline) Run(ctx context.Context, bus *events.Bus) {
	files := bus.FileShared.Subscribe(ctx)
	msgs := bus.Message.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-files:
			go p.HandleFileShared(ctx, evt)
		case evt := <-msgs:
			go p.HandleMessage(ctx, evt)
		}
	}
}

// HandleFileShared runs the full document pipeline for one file-shared
// event and returns the terminal outcome. A non-nil error means the run
// aborted at the returned state.
func (p *Pipeline) HandleFileShared(ctx context.Context, evt platform.FileSharedEvent) (Outcome, error) {
	logger := p.logger.With(
		"intake_id", uuid.NewString(),
		"file_id", evt.FileID,
		"user_id", evt.UserID)

	out, err := p.processFile(ctx, logger, evt)
	switch {
	case err != nil:
		logger.Error("intake run aborted", "state", out.State, "error", err)
		p.metrics.Intakes.WithLabelValues("aborted").Inc()
	case out.State == StateIgnored:
		logger.Debug("intake run ignored")
		p.metrics.Intakes.WithLabelValues(out.label()).Inc()
	default:
		logger.Info("intake run finished", "state", out.State, "reason", out.Reason)
		p.metrics.Intakes.WithLabelValues(out.label()).Inc()
	}
	return out, err
}

func (p *Pipeline) processFile(ctx context.Context, logger *slog.Logger, evt platform.FileSharedEvent) (Outcome, error) {
	if evt.ChannelID != "" && evt.ChannelID != p.cfg.ChannelID {
		return Outcome{State: StateIgnored}, nil
	}
	if p.cfg.IsIntakeAdmin(string(evt.UserID)) {
		return Outcome{State: StateIgnored}, nil
	}

	// Claim the file before any side effect; the losing duplicate
	// delivery backs off here.
	key := "file:" + evt.FileID
	if p.guard.CheckAndMark(key) {
		return Outcome{State: StateIgnored}, nil
	}

	file, err := p.adapter.GetFileMetadata(ctx, evt.FileID)
	if err != nil {
		p.guard.Forget(key)
		return Outcome{State: StateObserved}, err
	}
	if !p.qualifies(file) {
		return Outcome{State: StateIgnored}, nil
	}

	// Download before delete: a failed download must leave the source
	// file on the platform.
	data, err := p.adapter.DownloadFileBytes(ctx, file.DownloadURL)
	if err != nil {
		p.guard.Forget(key)
		return Outcome{State: StateClassified}, err
	}
	if err := p.adapter.DeleteFile(ctx, evt.FileID); err != nil && !platform.IsBenign(err) {
		// The source file is still on the platform; let a redelivery retry.
		p.guard.Forget(key)
		return Outcome{State: StateDownloaded}, err
	}

	base, ext := file.SplitName()
	project := base
	if p.cfg.NameSeparator != "" {
		project, _, _ = strings.Cut(base, p.cfg.NameSeparator)
	}
	target, err := p.adapter.ResolveChannel(ctx, p.cfg.ChannelPrefix+project)
	if err != nil {
		if platform.Classify(err) == platform.KindNotFound {
			p.notify(ctx, evt.UserID, msgRenamed)
			return Outcome{State: StateRejected, Reason: ReasonRouting}, nil
		}
		return Outcome{State: StateOriginDeleted}, err
	}
	logger.Debug("upload routed", "project", project, "channel", target.Name)

	modified, err := p.hasBeenModified(ctx, file)
	if err != nil {
		return Outcome{State: StateRouted}, err
	}
	if !modified {
		p.notify(ctx, evt.UserID, msgUnsigned)
		return Outcome{State: StateRejected, Reason: ReasonNotModified}, nil
	}

	user, err := p.adapter.GetUser(ctx, evt.UserID)
	if err != nil {
		return Outcome{State: StateVerified}, err
	}
	archiveName := user.RealName
	if ext != "" {
		archiveName += "." + ext
	}
	if err := p.archiver.Upload(ctx, project, archiveName, data); err != nil {
		logger.Error("archival upload failed", "project", project, "error", err)
		p.notify(ctx, evt.UserID, msgStorageError)
		return Outcome{State: StateRejected, Reason: ReasonStorage}, nil
	}

	members, err := p.adapter.ListMembers(ctx, target.ID)
	if err != nil {
		return Outcome{State: StateStored}, err
	}
	if slices.Contains(members, evt.UserID) {
		// Repeat upload by an already-authorized user: never a second
		// invite, just the resubmission ack.
		p.notify(ctx, evt.UserID, msgResubmitted)
		return Outcome{State: StateNotified}, nil
	}
	if err := p.adapter.Invite(ctx, target, evt.UserID); err != nil && !platform.IsBenign(err) {
		return Outcome{State: StateStored}, err
	}
	p.notify(ctx, evt.UserID, fmt.Sprintf(msgGranted, target.Name))
	return Outcome{State: StateNotified}, nil
}

// HandleMessage deletes the chat message that carried a qualifying upload.
// It races HandleFileShared for the same human action and must stay
// side-effect-safe regardless of which stream arrives first.
func (p *Pipeline) HandleMessage(ctx context.Context, evt platform.MessageEvent) (Outcome, error) {
	if evt.ChannelID != p.cfg.ChannelID || len(evt.FileIDs) == 0 || evt.UserID == "" {
		return Outcome{State: StateIgnored}, nil
	}
	if p.cfg.IsIntakeAdmin(string(evt.UserID)) {
		return Outcome{State: StateIgnored}, nil
	}
	key := "msg:" + evt.ChannelID + ":" + evt.Timestamp
	if p.guard.CheckAndMark(key) {
		return Outcome{State: StateIgnored}, nil
	}

	ref := platform.MessageRef{ChannelID: evt.ChannelID, Timestamp: evt.Timestamp}
	if err := p.adapter.DeleteMessage(ctx, ref); err != nil && !platform.IsBenign(err) {
		p.guard.Forget(key)
		p.logger.Error("upload message delete failed", "ts", evt.Timestamp, "error", err)
		return Outcome{State: StateObserved}, err
	}
	if p.cfg.AckMessageDelete {
		p.notify(ctx, evt.UserID, msgReceived)
	}
	return Outcome{State: StateNotified}, nil
}

// qualifies reports whether the file matches the configured document
// signature.
func (p *Pipeline) qualifies(f platform.FileMeta) bool {
	if !strings.EqualFold(f.Filetype, p.cfg.Filetype) {
		return false
	}
	if p.cfg.NamePrefix != "" && !strings.HasPrefix(f.Name, p.cfg.NamePrefix) {
		return false
	}
	return true
}

// hasBeenModified compares the upload against the most recent prior
// same-name entry in the intake channel's file history. No prior entry
// counts as modified.
func (p *Pipeline) hasBeenModified(ctx context.Context, file platform.FileMeta) (bool, error) {
	history, err := p.adapter.ListChannelFiles(ctx, p.cfg.ChannelID, p.cfg.Filetype)
	if err != nil {
		return false, err
	}
	var prior *platform.FileMeta
	for i := range history {
		if history[i].Name == file.Name && history[i].ID != file.ID {
			// History is ordered by creation time ascending, so the
			// last match is the most recent submission.
			prior = &history[i]
		}
	}
	if prior == nil {
		return true, nil
	}
	return prior.Size != file.Size, nil
}

func (p *Pipeline) notify(ctx context.Context, user platform.UserID, text string) {
	if err := p.adapter.PostEphemeral(ctx, p.cfg.ChannelID, user, text); err != nil {
		p.logger.Warn("failed to notify uploader", "user_id", user, "error", err)
	}
}
