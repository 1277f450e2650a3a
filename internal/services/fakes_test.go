package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/quill-blog/quill/internal/storage"
	"github.com/quill-blog/quill/internal/store"
	"github.com/quill-blog/quill/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	users  *fakeUserRepo
	posts  map[int]types.Post
	nextID int
	clock  time.Time
	err    error
}

func newFakePostRepo(users *fakeUserRepo) *fakePostRepo {
	return &fakePostRepo{
		users: users,
		posts: map[int]types.Post{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakePostRepo) withAuthor(post types.Post) types.Post {
	if user, err := r.users.GetByID(context.Background(), post.AuthorID); err == nil {
		post.AuthorUsername = user.Username
	}
	return post
}

func (r *fakePostRepo) List(_ context.Context) ([]types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	posts := make([]types.Post, 0, len(r.posts))
	for _, post := range r.posts {
		posts = append(posts, r.withAuthor(post))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Created.Equal(posts[j].Created) {
			return posts[i].Created.After(posts[j].Created)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (r *fakePostRepo) Get(_ context.Context, id int) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.Post{}, r.err
	}
	post, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return r.withAuthor(post), nil
}

func (r *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.Post{}, r.err
	}
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	post.ID = r.nextID
	post.Created = r.clock
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakePostRepo) Update(_ context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.Post{}, r.err
	}
	existing, ok := r.posts[post.ID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	existing.Title = post.Title
	existing.Body = post.Body
	r.posts[post.ID] = existing
	return post, nil
}

func (r *fakePostRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

type fakePublisher struct {
	events []types.PostEvent
	err    error
}

func (p *fakePublisher) PublishPostEvent(_ context.Context, event types.PostEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeArchiveStorage struct {
	ensureErr error
	putErr    error
	objects   map[string][]byte
	metadata  map[string]map[string]string
}

func newFakeArchiveStorage() *fakeArchiveStorage {
	return &fakeArchiveStorage{
		objects:  map[string][]byte{},
		metadata: map[string]map[string]string{},
	}
}

func (s *fakeArchiveStorage) EnsureBucket(context.Context) error {
	return s.ensureErr
}

func (s *fakeArchiveStorage) Put(_ context.Context, obj storage.Object) error {
	if s.putErr != nil {
		return s.putErr
	}
	buf, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	if int64(len(buf)) != obj.Size {
		return errors.New("size mismatch")
	}
	s.objects[obj.Key] = buf
	s.metadata[obj.Key] = obj.Metadata
	return nil
}
