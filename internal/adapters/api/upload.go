package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/domain"
	"github.com/kartoza/cplus-plugin/internal/ports"
)

const (
	// DefaultMaxPartRetries bounds attempts for a single part before the
	// failure propagates to the caller, which then decides whether to abort
	// the whole session.
	DefaultMaxPartRetries = 5

	chunkContentType = "application/octet-stream"
)

// Uploader PUTs file chunks to pre-signed part URLs, collecting the ETag
// integrity token each part returns. Failed parts retry with exponential
// backoff (2, 4, 8, 16 seconds between the five attempts).
type Uploader struct {
	transport  *Transport
	sleeper    ports.Sleeper
	logger     zerolog.Logger
	maxRetries int
}

func NewUploader(transport *Transport, sleeper ports.Sleeper, logger zerolog.Logger) *Uploader {
	if sleeper == nil {
		sleeper = ports.SystemSleeper{}
	}
	return &Uploader{
		transport:  transport,
		sleeper:    sleeper,
		logger:     logger,
		maxRetries: DefaultMaxPartRetries,
	}
}

// UploadPart uploads one chunk to its pre-signed URL and returns the part's
// integrity record. The HTTP status is deliberately not inspected: object
// stores answer pre-signed PUTs with bare 200s, and the absence of a
// transport failure plus a present ETag header is the success criterion.
func (u *Uploader) UploadPart(ctx context.Context, url string, chunk []byte, partNumber int) (domain.PartItem, error) {
	var lastErr error
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		header, _, err := u.transport.PutBytes(ctx, url, chunk, chunkContentType)
		if err == nil {
			etag := header.Get("ETag")
			if etag != "" {
				u.logger.Debug().
					Int("part_number", partNumber).
					Str("etag", etag).
					Msg("uploaded chunk")
				return domain.PartItem{PartNumber: partNumber, ETag: etag}, nil
			}
			err = fmt.Errorf("part %d response missing ETag header", partNumber)
		}
		lastErr = err
		u.logger.Warn().
			Int("part_number", partNumber).
			Int("attempt", attempt).
			Err(err).
			Msg("part upload failed")

		if attempt == u.maxRetries {
			break
		}
		delay := time.Duration(1<<attempt) * time.Second
		u.logger.Debug().Dur("delay", delay).Msg("retrying part upload")
		if sleepErr := u.sleeper.Sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	return domain.PartItem{}, &UploadError{
		PartNumber: partNumber,
		Attempts:   u.maxRetries,
		Err:        lastErr,
	}
}

// UploadFile splits the file at path into ChunkSize windows and uploads
// them strictly sequentially, one pre-signed URL per part in part-number
// order. Any unrecoverable part failure aborts the remaining parts.
// onPart, if non-nil, is invoked after each successful part with the
// 1-based part number and the total part count.
func (u *Uploader) UploadFile(ctx context.Context, path string, partURLs []string, onPart func(partNumber, totalParts int)) ([]domain.PartItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload file: %w", err)
	}
	totalParts := domain.NumberOfParts(info.Size())
	if len(partURLs) < totalParts {
		return nil, fmt.Errorf(
			"upload session has %d part urls, file needs %d", len(partURLs), totalParts,
		)
	}

	parts := make([]domain.PartItem, 0, totalParts)
	chunk := make([]byte, domain.ChunkSize)
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		n, err := io.ReadFull(file, chunk)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read chunk %d: %w", partNumber, err)
		}

		part, err := u.UploadPart(ctx, partURLs[partNumber-1], chunk[:n], partNumber)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		if onPart != nil {
			onPart(partNumber, totalParts)
		}
	}

	return parts, nil
}
