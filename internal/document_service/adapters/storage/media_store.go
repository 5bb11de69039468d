package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

// MediaStore downloads client media from the transport provider and archives
// it under a local directory, one subdirectory per client. Provider media
// URLs require the account's basic-auth credentials.
type MediaStore struct {
	httpClient *http.Client
	accountSID string
	authToken  string
	basePath   string
	logger     *slog.Logger
}

func NewMediaStore(logger *slog.Logger, accountSID, authToken, basePath string, httpClient *http.Client) *MediaStore {
	if basePath == "" {
		basePath = "/tmp/docchase-media"
		logger.Warn("Media storage path not configured, using default", "path", basePath)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MediaStore{
		httpClient: httpClient,
		accountSID: accountSID,
		authToken:  authToken,
		basePath:   basePath,
		logger:     logger.With("service_component", "MediaStore"),
	}
}

// Convert fetches the document's media and writes it to the archive. The
// file name is the document ID plus an extension derived from the content
// type.
func (s *MediaStore) Convert(ctx context.Context, doc *domain.Document) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.MediaURL, nil)
	if err != nil {
		return fmt.Errorf("building media request: %w", err)
	}
	if s.accountSID != "" {
		req.SetBasicAuth(s.accountSID, s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d for media fetch", resp.StatusCode)
	}

	clientDir := filepath.Join(s.basePath, doc.ClientID.String())
	if err := os.MkdirAll(clientDir, 0750); err != nil {
		return fmt.Errorf("could not create media directory: %w", err)
	}

	fullPath := filepath.Join(clientDir, doc.ID.String()+extensionFor(doc.ContentType))
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("creating media file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		return fmt.Errorf("writing media file: %w", err)
	}

	s.logger.InfoContext(ctx, "Media archived",
		"document_id", doc.ID, "path", fullPath, "bytes", written)
	return nil
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
