package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"secureauthhub/internal/config"
	"secureauthhub/internal/model"
	"secureauthhub/internal/platform/search"
	"secureauthhub/internal/repository"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrNoExtractableText   = errors.New("no text could be extracted from the file")
)

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type SearchIndex interface {
	IndexDocument(ctx context.Context, doc search.Document) error
	DeleteDocument(ctx context.Context, id uint) error
	Search(ctx context.Context, ownerID uint, query string, size int) (*search.Result, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type DocumentIndexer interface {
	IndexDocument(ctx context.Context, docID uint, text string) (int, error)
	RemoveDocument(docID uint) error
}

type DocumentService struct {
	docRepo   *repository.DocumentRepository
	store     ObjectStore
	extractor TextExtractor
	indexer   DocumentIndexer
	search    SearchIndex
	upload    config.UploadConfig
	keyPrefix string
}

type UploadInput struct {
	OwnerID     uint
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	Document   *model.Document
	ChunkCount int
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	store ObjectStore,
	extractor TextExtractor,
	indexer DocumentIndexer,
	searchIndex SearchIndex,
	upload config.UploadConfig,
	keyPrefix string,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		store:     store,
		extractor: extractor,
		indexer:   indexer,
		search:    searchIndex,
		upload:    upload,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *DocumentService) MaxUploadBytes() int64 {
	return s.upload.MaxBytes
}

// Upload stores the file, extracts its text, and indexes it for retrieval and
// full-text search. A failure after the object is stored removes whatever was
// already written.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.OwnerID == 0 || input.Body == nil {
		return nil, ErrInvalidInput
	}
	filename := filepath.Base(strings.TrimSpace(input.Filename))
	if filename == "." || filename == "/" || filename == "" {
		return nil, ErrInvalidInput
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(s.upload.AllowedExtensions, ext) {
		return nil, ErrUnsupportedFileType
	}
	if input.Size > s.upload.MaxBytes {
		return nil, ErrFileTooLarge
	}

	tmpPath, size, err := s.spool(input.Body, ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	key := s.objectKey(input.OwnerID, ext)
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var (
		url    string
		text   string
		stored bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := os.Open(tmpPath)
		if err != nil {
			return fmt.Errorf("open spooled upload failed: %w", err)
		}
		defer f.Close()
		url, err = s.store.Put(gctx, key, f, size, contentType)
		if err != nil {
			return err
		}
		stored = true
		return nil
	})
	g.Go(func() error {
		var err error
		text, err = s.extractor.Extract(gctx, tmpPath)
		return err
	})
	if err := g.Wait(); err != nil {
		if stored {
			s.compensate(ctx, nil, key)
		}
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.compensate(ctx, nil, key)
		return nil, ErrNoExtractableText
	}

	doc := &model.Document{
		OwnerID:       input.OwnerID,
		Filename:      filename,
		S3URL:         url,
		ObjectKey:     key,
		ContentType:   contentType,
		SizeBytes:     size,
		ExtractedText: text,
	}
	if err := s.docRepo.Create(doc); err != nil {
		s.compensate(ctx, nil, key)
		return nil, err
	}

	chunkCount, err := s.indexer.IndexDocument(ctx, doc.ID, text)
	if err != nil {
		s.compensate(ctx, doc, key)
		return nil, fmt.Errorf("build embedding index failed: %w", err)
	}

	if err := s.search.IndexDocument(ctx, search.Document{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		Filename:      doc.Filename,
		S3URL:         doc.S3URL,
		ExtractedText: doc.ExtractedText,
		UploadedAt:    doc.UploadedAt,
	}); err != nil {
		s.compensate(ctx, doc, key)
		return nil, err
	}

	slog.Info("document uploaded", "document_id", doc.ID, "owner_id", doc.OwnerID, "chunks", chunkCount, "bytes", size)
	return &UploadResult{Document: doc, ChunkCount: chunkCount}, nil
}

func (s *DocumentService) List(ownerID uint) ([]model.Document, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByOwnerID(ownerID)
}

func (s *DocumentService) Get(ownerID, id uint) (*model.Document, error) {
	if ownerID == 0 || id == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndOwnerID(id, ownerID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the search entry, the chunks, the stored object and the row.
// The row is removed last so a partial failure can be retried.
func (s *DocumentService) Delete(ctx context.Context, ownerID, id uint) error {
	doc, err := s.Get(ownerID, id)
	if err != nil {
		return err
	}
	if err := s.search.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.indexer.RemoveDocument(doc.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.ObjectKey); err != nil {
		return err
	}
	return s.docRepo.DeleteByIDAndOwnerID(doc.ID, ownerID)
}

// spool copies body into a temp file that keeps ext so the parser can pick a
// format from it.
func (s *DocumentService) spool(body io.Reader, ext string) (string, int64, error) {
	tmp, err := os.CreateTemp(s.upload.TempDir, "upload-*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file failed: %w", err)
	}
	n, err := io.Copy(tmp, io.LimitReader(body, s.upload.MaxBytes+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write temp file failed: %w", err)
	}
	if n > s.upload.MaxBytes {
		_ = os.Remove(tmp.Name())
		return "", 0, ErrFileTooLarge
	}
	return tmp.Name(), n, nil
}

func (s *DocumentService) objectKey(ownerID uint, ext string) string {
	name := fmt.Sprintf("%d/%s%s", ownerID, uuid.NewString(), ext)
	if s.keyPrefix == "" {
		return name
	}
	return path.Join(s.keyPrefix, name)
}

// compensate undoes a partially completed upload. Failures are logged only.
func (s *DocumentService) compensate(ctx context.Context, doc *model.Document, key string) {
	ctx = context.WithoutCancel(ctx)
	if doc != nil {
		if err := s.search.DeleteDocument(ctx, doc.ID); err != nil {
			slog.Warn("compensate: delete search entry failed", "document_id", doc.ID, "error", err)
		}
		if err := s.indexer.RemoveDocument(doc.ID); err != nil {
			slog.Warn("compensate: delete chunks failed", "document_id", doc.ID, "error", err)
		}
		if err := s.docRepo.DeleteByIDAndOwnerID(doc.ID, doc.OwnerID); err != nil {
			slog.Warn("compensate: delete document row failed", "document_id", doc.ID, "error", err)
		}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		slog.Warn("compensate: delete object failed", "key", key, "error", err)
	}
}
