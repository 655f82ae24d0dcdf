package file

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/saas-starter-api/internal/domain"
	s3infra "github.com/saas-starter-api/internal/infrastructure/s3"
	"github.com/saas-starter-api/internal/pkg/id"
)

type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	OwnerID     string
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (*domain.File, error)
	Download(ctx context.Context, fileID, requesterID string, isAdmin bool) (io.ReadCloser, *domain.File, error)
	Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error
}

type fileStore interface {
	Put(ctx context.Context, f *domain.File) error
	Get(ctx context.Context, fileID string) (*domain.File, error)
	SoftDelete(ctx context.Context, fileID string) error
}

type service struct {
	s3       *s3infra.Store
	fileRepo fileStore
}

func NewService(s3 *s3infra.Store, fileRepo fileStore) Service {
	return &service{s3: s3, fileRepo: fileRepo}
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*domain.File, error) {
	safeName := sanitizeFilename(input.Filename)
	key := fmt.Sprintf("files/%s/%s", input.OwnerID, safeName)
	if _, err := s.s3.Upload(ctx, key, input.Reader, input.ContentType); err != nil {
		return nil, err
	}
	f := &domain.File{
		FileID:      id.New(),
		OwnerID:     input.OwnerID,
		Name:        safeName,
		ContentType: input.ContentType,
		S3Key:       key,
		Size:        input.Size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.fileRepo.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Download(ctx context.Context, fileID, requesterID string, isAdmin bool) (io.ReadCloser, *domain.File, error) {
	f, err := s.fileRepo.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f.OwnerID != requesterID && !isAdmin {
		return nil, nil, fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	rc, err := s.s3.Download(ctx, f.S3Key)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *service) Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error {
	f, err := s.fileRepo.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if f.OwnerID != requesterID && !isAdmin {
		return fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	if err := s.s3.Delete(ctx, f.S3Key); err != nil {
		return err
	}
	return s.fileRepo.SoftDelete(ctx, fileID)
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
