// Package source fetches the raw observation collection from the upstream
// remote-sensing export.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/adapter/geojson"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
)

// maxPayloadBytes bounds the size of a fetched collection.
const maxPayloadBytes = 64 << 20

// HTTPSource implements domain.ObservationSource over HTTP GET.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a source that fetches GeoJSON from url.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchObservations downloads and decodes the observation collection.
func (s *HTTPSource) FetchObservations(ctx context.Context) ([]domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("observation source error: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}

	obs, err := geojson.Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("observations fetched", "url", s.url, "count", len(obs), "bytes", len(data))
	return obs, nil
}

// FileSource implements domain.ObservationSource over a local file, for
// development and fixtures produced by cmd/genmock.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path on every fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchObservations reads and decodes the file.
func (s *FileSource) FetchObservations(ctx context.Context) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read observation file: %w", err)
	}
	return geojson.Decode(data)
}
