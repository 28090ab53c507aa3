// Package application orchestrates the API client into end-to-end
// operations: layer upload, scenario runs with asynchronous status
// tracking, and output retrieval.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/adapters/api"
	"github.com/kartoza/cplus-plugin/internal/domain"
)

type Service struct {
	client     *api.Client
	uploader   *api.Uploader
	downloader *api.Downloader
	logger     zerolog.Logger
}

func NewService(client *api.Client, uploader *api.Uploader, downloader *api.Downloader, logger zerolog.Logger) *Service {
	return &Service{
		client:     client,
		uploader:   uploader,
		downloader: downloader,
		logger:     logger,
	}
}

// UploadProgress reports completion of one part during a layer upload.
type UploadProgress struct {
	PartNumber int
	TotalParts int
}

// UploadLayer uploads the file at path as a layer of the given component
// type: start session, sequential part PUTs, finish. A part failure on a
// multipart session aborts the session before the error propagates.
func (s *Service) UploadLayer(ctx context.Context, path, componentType string, onProgress func(UploadProgress)) (api.FinishUploadResult, error) {
	started, err := s.client.StartUpload(ctx, path, componentType)
	if err != nil {
		return api.FinishUploadResult{}, fmt.Errorf("start layer upload: %w", err)
	}

	session := domain.UploadSession{
		LayerUUID:         started.UUID,
		MultipartUploadID: started.MultipartUploadID,
	}
	s.logger.Info().
		Str("layer_uuid", session.LayerUUID).
		Bool("multipart", session.IsMultipart()).
		Msg("upload session started")

	var onPart func(int, int)
	if onProgress != nil {
		onPart = func(partNumber, totalParts int) {
			onProgress(UploadProgress{PartNumber: partNumber, TotalParts: totalParts})
		}
	}

	parts, err := s.uploader.UploadFile(ctx, path, started.PartURLs(), onPart)
	if err != nil {
		if session.IsMultipart() {
			if abortErr := s.client.AbortUpload(ctx, session.LayerUUID, session.MultipartUploadID); abortErr != nil {
				s.logger.Warn().
					Str("layer_uuid", session.LayerUUID).
					Err(abortErr).
					Msg("abort upload failed")
			}
		}
		return api.FinishUploadResult{}, err
	}
	session.Parts = parts

	result, err := s.client.FinishUpload(ctx, session.LayerUUID, session.MultipartUploadID, session.Parts)
	if err != nil {
		return api.FinishUploadResult{}, fmt.Errorf("finish layer upload: %w", err)
	}
	return result, nil
}

// RunOptions tunes a scenario run.
type RunOptions struct {
	PollInterval time.Duration
	PollLimit    int
	// OnStatus observes every status response, intermediate and terminal.
	OnStatus func(api.Document)
}

// Run is a handle to an in-flight scenario run. The polling work happens on
// its own goroutine so the caller stays responsive; Wait blocks until the
// run reaches a terminal state.
type Run struct {
	ScenarioUUID string

	poller *api.Poller
	client *api.Client
	done   chan struct{}
	result api.Document
	err    error
}

// Wait blocks until the run finishes or ctx is cancelled, returning the
// final status response.
func (r *Run) Wait(ctx context.Context) (api.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return r.result, r.err
	}
}

// Cancel stops the run. The local poll session stops before its next
// attempt; with remote set, the scenario itself is also cancelled on the
// server.
func (r *Run) Cancel(ctx context.Context, remote bool) error {
	r.poller.Cancel()
	if !remote {
		return nil
	}
	return r.client.CancelScenario(ctx, r.ScenarioUUID)
}

// StartRun submits the scenario document, triggers its execution, and
// starts polling its status in the background.
func (s *Service) StartRun(ctx context.Context, scenarioDetail any, opts RunOptions) (*Run, error) {
	scenarioUUID, err := s.client.SubmitScenario(ctx, scenarioDetail)
	if err != nil {
		return nil, fmt.Errorf("submit scenario: %w", err)
	}
	s.logger.Info().Str("scenario_uuid", scenarioUUID).Msg("scenario submitted")

	if err := s.client.ExecuteScenario(ctx, scenarioUUID); err != nil {
		return nil, fmt.Errorf("execute scenario: %w", err)
	}

	var pollerOpts []api.PollerOption
	if opts.PollInterval > 0 {
		pollerOpts = append(pollerOpts, api.WithPollInterval(opts.PollInterval))
	}
	if opts.PollLimit != 0 {
		pollerOpts = append(pollerOpts, api.WithPollLimit(opts.PollLimit))
	}

	poller := s.client.FetchScenarioStatus(scenarioUUID, pollerOpts...)
	poller.OnResponse = opts.OnStatus

	run := &Run{
		ScenarioUUID: scenarioUUID,
		poller:       poller,
		client:       s.client,
		done:         make(chan struct{}),
	}
	go func() {
		defer close(run.done)
		run.result, run.err = poller.Poll(ctx)
	}()

	return run, nil
}

// FetchScenarioOutputs lists a completed scenario's outputs and downloads
// them into targetDir.
func (s *Service) FetchScenarioOutputs(ctx context.Context, scenarioUUID, targetDir string, isCancelled func() bool) (api.DownloadResult, error) {
	outputs, err := s.client.FetchScenarioOutputs(ctx, scenarioUUID)
	if err != nil {
		return api.DownloadResult{}, fmt.Errorf("list scenario outputs: %w", err)
	}
	if len(outputs) == 0 {
		return api.DownloadResult{}, nil
	}

	result, err := s.downloader.DownloadOutputs(ctx, outputs, targetDir, isCancelled)
	if err != nil {
		return api.DownloadResult{}, fmt.Errorf("download scenario outputs: %w", err)
	}
	s.logger.Info().
		Int("outputs", len(outputs)).
		Str("dir", targetDir).
		Msg("scenario outputs downloaded")
	return result, nil
}
