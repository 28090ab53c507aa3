package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

const (
	downloadWorkers = 3
	downloadRounds  = 3
)

// Downloader streams scenario output files to disk. Downloads run with
// bounded parallelism; files whose local copy is missing after a round are
// retried up to downloadRounds times before the whole fetch fails.
type Downloader struct {
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// DownloadResult reports where the outputs landed. FinalOutputPath is empty
// when the listing carried no final output.
type DownloadResult struct {
	Paths           []string
	FinalOutputPath string
	FinalOutputMeta map[string]any
}

// DownloadOutputs fetches every output into targetDir: the final output at
// the directory root, everything else under its group subdirectory.
// isCancelled, if non-nil, is consulted between chunks and between rounds.
func (d *Downloader) DownloadOutputs(ctx context.Context, outputs []domain.ScenarioOutput, targetDir string, isCancelled func() bool) (DownloadResult, error) {
	result := DownloadResult{Paths: make([]string, len(outputs))}
	for i, output := range outputs {
		if output.IsFinalOutput {
			result.Paths[i] = filepath.Join(targetDir, output.Filename)
			result.FinalOutputPath = result.Paths[i]
			result.FinalOutputMeta = output.OutputMeta
			continue
		}
		result.Paths[i] = filepath.Join(targetDir, output.Group, output.Filename)
	}

	pending := make([]int, len(outputs))
	for i := range pending {
		pending[i] = i
	}

	for round := 1; len(pending) > 0; round++ {
		if round > downloadRounds {
			return DownloadResult{}, fmt.Errorf(
				"%d outputs still missing after %d download rounds", len(pending), downloadRounds,
			)
		}
		if cancelled(isCancelled) {
			return DownloadResult{}, context.Canceled
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(downloadWorkers)
		for _, idx := range pending {
			idx := idx
			group.Go(func() error {
				err := d.DownloadFile(groupCtx, outputs[idx].URL, result.Paths[idx], isCancelled)
				if err != nil {
					d.Logger.Warn().
						Str("filename", outputs[idx].Filename).
						Err(err).
						Msg("output download failed")
				}
				// Per-file failures are retried on the next round.
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return DownloadResult{}, err
		}

		var missing []int
		for _, idx := range pending {
			if _, err := os.Stat(result.Paths[idx]); err != nil {
				missing = append(missing, idx)
			}
		}
		pending = missing
	}

	return result, nil
}

// DownloadFile streams one URL to localPath, creating parent directories as
// needed. Cancellation between chunks leaves no partial file behind.
func (d *Downloader) DownloadFile(ctx context.Context, url, localPath string, isCancelled func() bool) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp download file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	buf := make([]byte, 8192)
	for {
		if cancelled(isCancelled) {
			_ = tmp.Close()
			return context.Canceled
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				_ = tmp.Close()
				return fmt.Errorf("write download file: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = tmp.Close()
			return fmt.Errorf("read download stream: %w", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close download file: %w", err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return fmt.Errorf("move download file: %w", err)
	}
	cleanup = false
	return nil
}

func (d *Downloader) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

func cancelled(isCancelled func() bool) bool {
	return isCancelled != nil && isCancelled()
}
