package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/validation"
	"github.com/quill-blog/quill/internal/store"
	"github.com/quill-blog/quill/types"
	"go.uber.org/zap"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context) ([]types.Post, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher announces committed post changes.
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, event types.PostEvent) error
}

// PostService encapsulates the blog use-cases.
type PostService struct {
	repo   PostRepository
	events EventPublisher
	logs   *zap.SugaredLogger
	now    func() time.Time
}

// NewPostService constructs a PostService. events may be nil when no broker
// is configured.
func NewPostService(repo PostRepository, events EventPublisher, logger *zap.SugaredLogger) *PostService {
	return &PostService{
		repo:   repo,
		events: events,
		logs:   logger,
		now:    time.Now,
	}
}

// List returns every post, newest first.
func (s *PostService) List(ctx context.Context) ([]types.Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Get returns the post with the given id without checking authorship.
func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, fmt.Errorf("post id %d does not exist: %w", id, ErrNotFound)
		}
		return types.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// GetForAuthor returns the post only when user wrote it.
func (s *PostService) GetForAuthor(ctx context.Context, id int, user types.User) (types.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if err := CheckAuthor(post, user); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// CheckAuthor returns ErrForbidden unless user is the post's author.
func CheckAuthor(post types.Post, user types.User) error {
	if !post.IsAuthor(user.ID) {
		return fmt.Errorf("post id %d: %w", post.ID, ErrForbidden)
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, user types.User, title, body string) (types.Post, error) {
	title = strings.TrimSpace(title)
	if err := validatePost(title); err != nil {
		return types.Post{}, err
	}

	post, err := s.repo.Create(ctx, types.Post{
		Title:    title,
		Body:     body,
		AuthorID: user.ID,
	})
	if err != nil {
		return types.Post{}, fmt.Errorf("create post: %w", err)
	}
	post.AuthorUsername = user.Username

	s.publish(ctx, types.PostCreated, post)
	return post, nil
}

// Update replaces the title and body of a post owned by user.
func (s *PostService) Update(ctx context.Context, user types.User, id int, title, body string) (types.Post, error) {
	post, err := s.GetForAuthor(ctx, id, user)
	if err != nil {
		return types.Post{}, err
	}

	title = strings.TrimSpace(title)
	if err := validatePost(title); err != nil {
		return types.Post{}, err
	}

	post.Title = title
	post.Body = body
	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, fmt.Errorf("post id %d does not exist: %w", id, ErrNotFound)
		}
		return types.Post{}, fmt.Errorf("update post: %w", err)
	}

	s.publish(ctx, types.PostUpdated, updated)
	return updated, nil
}

// Delete permanently removes a post owned by user.
func (s *PostService) Delete(ctx context.Context, user types.User, id int) error {
	post, err := s.GetForAuthor(ctx, id, user)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("post id %d does not exist: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete post: %w", err)
	}

	s.publish(ctx, types.PostDeleted, post)
	return nil
}

func validatePost(title string) error {
	return firstInvalid(
		fieldRules{"title", title, []validation.Rule{validation.Required.Error("Title is required.")}},
	)
}

// publish runs after the write has committed, so a broker failure is logged
// rather than returned.
func (s *PostService) publish(ctx context.Context, eventType types.PostEventType, post types.Post) {
	if s.events == nil {
		return
	}

	event := types.PostEvent{
		Type:       eventType,
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		Title:      post.Title,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishPostEvent(ctx, event); err != nil {
		s.logs.Errorw("failed to publish post event",
			"error", err,
			"event", eventType,
			"post_id", post.ID)
	}
}
