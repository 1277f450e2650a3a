package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quill-blog/quill/internal/storage"
	"github.com/quill-blog/quill/types"
)

const archiveContentType = "application/json"

// ArchiveStorage is the subset of an object store used for exports.
type ArchiveStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj storage.Object) error
}

// Archive is the JSON document written by ArchiveService.Export.
type Archive struct {
	ExportedAt time.Time    `json:"exported_at"`
	Posts      []types.Post `json:"posts"`
}

// ArchiveResult summarizes a finished export.
type ArchiveResult struct {
	Key   string
	Posts int
	Bytes int
}

// ArchiveService exports every post as a single JSON object.
type ArchiveService struct {
	posts   PostRepository
	storage ArchiveStorage
	now     func() time.Time
}

func NewArchiveService(posts PostRepository, storage ArchiveStorage) *ArchiveService {
	return &ArchiveService{posts: posts, storage: storage, now: time.Now}
}

// Export uploads the current post list under key. An empty key is replaced
// by a timestamped name.
func (s *ArchiveService) Export(ctx context.Context, key string) (ArchiveResult, error) {
	exportedAt := s.now().UTC()
	key = strings.TrimSpace(key)
	if key == "" {
		key = fmt.Sprintf("posts-%s.json", exportedAt.Format("20060102T150405Z"))
	}

	posts, err := s.posts.List(ctx)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("list posts: %w", err)
	}

	data, err := json.MarshalIndent(Archive{ExportedAt: exportedAt, Posts: posts}, "", "  ")
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("encode archive: %w", err)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return ArchiveResult{}, fmt.Errorf("ensure bucket: %w", err)
	}

	if err := s.storage.Put(ctx, storage.Object{
		Key:         key,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: archiveContentType,
		Metadata: map[string]string{
			"post-count": strconv.Itoa(len(posts)),
		},
	}); err != nil {
		return ArchiveResult{}, fmt.Errorf("upload archive: %w", err)
	}

	return ArchiveResult{Key: key, Posts: len(posts), Bytes: len(data)}, nil
}
