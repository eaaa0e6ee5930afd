package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dealnote/internal/metrics"

	"github.com/slack-go/slack"
)

// FileAPI is the slice of the Slack client the relay needs.
// *slack.Client satisfies it.
type FileAPI interface {
	GetFile(downloadURL string, writer io.Writer) error
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// FileUploader submits file bytes to the CRM.
type FileUploader interface {
	UploadFile(ctx context.Context, dealID, filename string, file io.Reader) error
}

// Relay re-homes chat-hosted attachments: into the CRM as deal files, and
// back into the channel as first-class Slack file objects. Every attachment
// is handled independently; one failure never aborts the rest.
type Relay struct {
	slackAPI FileAPI
	uploader FileUploader
	toThread bool
}

func New(slackAPI FileAPI, uploader FileUploader, toThread bool) *Relay {
	return &Relay{
		slackAPI: slackAPI,
		uploader: uploader,
		toThread: toThread,
	}
}

// RelayToCRM uploads each attachment to the CRM under the given deal.
func (r *Relay) RelayToCRM(ctx context.Context, dealID string, files []slack.File) {
	for _, file := range files {
		if err := r.relayFileToCRM(ctx, dealID, file); err != nil {
			metrics.AttachmentsRelayed.WithLabelValues("crm", "error").Inc()
			slog.Error("Failed to relay attachment to CRM", "error", err,
				"file", file.Name, "deal_id", dealID)
			continue
		}
		metrics.AttachmentsRelayed.WithLabelValues("crm", "success").Inc()
		slog.Info("Relayed attachment to CRM", "file", file.Name, "deal_id", dealID)
	}
}

func (r *Relay) relayFileToCRM(ctx context.Context, dealID string, file slack.File) error {
	path, err := r.downloadToTemp(file)
	if err != nil {
		return err
	}
	defer removeQuietly(path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen downloaded file: %w", err)
	}
	defer f.Close()

	if err := r.uploader.UploadFile(ctx, dealID, file.Name, f); err != nil {
		metrics.CRMFilesUploaded.WithLabelValues("error").Inc()
		return err
	}
	metrics.CRMFilesUploaded.WithLabelValues("success").Inc()
	return nil
}

// RelayToChat re-uploads each attachment into the channel, optionally into
// the originating thread, replacing the ephemeral chat reference with a
// durable file object.
func (r *Relay) RelayToChat(ctx context.Context, channelID, threadTS string, files []slack.File) {
	for _, file := range files {
		if err := r.relayFileToChat(ctx, channelID, threadTS, file); err != nil {
			metrics.AttachmentsRelayed.WithLabelValues("chat", "error").Inc()
			slog.Error("Failed to re-upload attachment to channel", "error", err,
				"file", file.Name, "channel_id", channelID)
			continue
		}
		metrics.AttachmentsRelayed.WithLabelValues("chat", "success").Inc()
		slog.Info("Re-uploaded attachment to channel", "file", file.Name, "channel_id", channelID)
	}
}

func (r *Relay) relayFileToChat(ctx context.Context, channelID, threadTS string, file slack.File) error {
	path, err := r.downloadToTemp(file)
	if err != nil {
		return err
	}
	defer removeQuietly(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	params := slack.UploadFileV2Parameters{
		Channel:  channelID,
		File:     path,
		FileSize: int(info.Size()),
		Filename: file.Name,
		Title:    file.Name,
	}
	if r.toThread {
		params.ThreadTimestamp = threadTS
	}

	if _, err := r.slackAPI.UploadFileV2Context(ctx, params); err != nil {
		return fmt.Errorf("failed to upload file to Slack: %w", err)
	}
	return nil
}

// downloadToTemp fetches the file's bytes from Slack's authenticated
// private-download URL into a uniquely named temporary file and returns its
// path. The caller owns removal.
func (r *Relay) downloadToTemp(file slack.File) (string, error) {
	if file.URLPrivateDownload == "" {
		return "", fmt.Errorf("file %q has no private download URL", file.Name)
	}

	tmp, err := os.CreateTemp("", "dealnote-*-"+filepath.Base(file.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := r.slackAPI.GetFile(file.URLPrivateDownload, tmp); err != nil {
		tmp.Close()
		removeQuietly(tmp.Name())
		return "", fmt.Errorf("failed to download file %q: %w", file.Name, err)
	}

	if err := tmp.Close(); err != nil {
		removeQuietly(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmp.Name(), nil
}

// removeQuietly is best-effort temp cleanup; failure is swallowed.
func removeQuietly(path string) {
	if err := os.Remove(path); err != nil {
		slog.Debug("Failed to remove temp file", "path", path, "error", err)
	}
}
