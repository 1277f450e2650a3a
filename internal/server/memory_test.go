package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quill-blog/quill/internal/store"
	"github.com/quill-blog/quill/types"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{nextID: 1, byID: map[int]types.User{}}
}

func (m *memoryUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.byID[user.ID] = user
	return user, nil
}

func (m *memoryUsers) remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memoryUsers) username(id int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Username
}

type memoryPosts struct {
	mu     sync.Mutex
	users  *memoryUsers
	nextID int
	clock  time.Time
	byID   map[int]types.Post
}

func newMemoryPosts(users *memoryUsers) *memoryPosts {
	return &memoryPosts{
		users:  users,
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		byID:   map[int]types.Post{},
	}
}

func (m *memoryPosts) List(_ context.Context) ([]types.Post, error) {
	m.mu.Lock()
	posts := make([]types.Post, 0, len(m.byID))
	for _, post := range m.byID {
		posts = append(posts, post)
	}
	m.mu.Unlock()

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Created.Equal(posts[j].Created) {
			return posts[i].Created.After(posts[j].Created)
		}
		return posts[i].ID > posts[j].ID
	})
	for i := range posts {
		posts[i].AuthorUsername = m.users.username(posts[i].AuthorID)
	}
	return posts, nil
}

func (m *memoryPosts) Get(_ context.Context, id int) (types.Post, error) {
	m.mu.Lock()
	post, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.AuthorUsername = m.users.username(post.AuthorID)
	return post, nil
}

func (m *memoryPosts) Create(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	post.ID = m.nextID
	post.Created = m.clock
	m.nextID++
	m.byID[post.ID] = post
	return post, nil
}

func (m *memoryPosts) Update(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[post.ID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	existing.Title = post.Title
	existing.Body = post.Body
	m.byID[post.ID] = existing
	existing.AuthorUsername = post.AuthorUsername
	return existing, nil
}

func (m *memoryPosts) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}
