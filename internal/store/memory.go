package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/model"
)

// MemoryServerStore keeps server descriptors in a map. Suitable for
// development and tests; nothing survives a restart.
type MemoryServerStore struct {
	mu      sync.RWMutex
	servers map[uuid.UUID]model.Server
}

func NewMemoryServerStore(seed ...model.Server) *MemoryServerStore {
	s := &MemoryServerStore{servers: make(map[uuid.UUID]model.Server)}
	for _, server := range seed {
		s.servers[server.UID] = server
	}
	return s
}

func (s *MemoryServerStore) All(ctx context.Context) ([]model.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servers := make([]model.Server, 0, len(s.servers))
	for _, server := range s.servers {
		servers = append(servers, server)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers, nil
}

func (s *MemoryServerStore) Get(ctx context.Context, uid uuid.UUID) (*model.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	server, ok := s.servers[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &server, nil
}

func (s *MemoryServerStore) Upsert(ctx context.Context, server model.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[server.UID] = server
	return nil
}

func (s *MemoryServerStore) Delete(ctx context.Context, uid uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[uid]; !ok {
		return ErrNotFound
	}
	delete(s.servers, uid)
	return nil
}

// MemoryUserStore keeps user accounts in a map.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserStore(seed ...model.User) *MemoryUserStore {
	s := &MemoryUserStore{users: make(map[string]model.User)}
	for _, user := range seed {
		s.users[user.Username] = user
	}
	return s
}

func (s *MemoryUserStore) All(ctx context.Context) ([]model.UserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]model.UserView, 0, len(s.users))
	for _, user := range s.users {
		views = append(views, user.UserView)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Username < views[j].Username })
	return views, nil
}

func (s *MemoryUserStore) Get(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryUserStore) Upsert(ctx context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return ErrNotFound
	}
	delete(s.users, username)
	return nil
}
