package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// ErrPostNotFound is returned for lookups of posts never stored.
var ErrPostNotFound = errors.New("post not found")

// PostStore keeps extracted posts in a map keyed by blogID/logNo.
type PostStore struct {
	mu    sync.RWMutex
	posts map[string]scraper.ExtractedPost
}

// NewPostStore constructs an empty PostStore.
func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[string]scraper.ExtractedPost)}
}

// Upsert stores the post, replacing any earlier extraction of the same
// reference.
func (s *PostStore) Upsert(_ context.Context, post scraper.ExtractedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.Reference.Key()] = clonePost(post)
	return nil
}

// Get returns the stored post for the reference.
func (s *PostStore) Get(_ context.Context, ref scraper.PostReference) (scraper.ExtractedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[ref.Key()]
	if !ok {
		return scraper.ExtractedPost{}, ErrPostNotFound
	}
	return clonePost(post), nil
}

// Count reports the number of stored posts.
func (s *PostStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

func clonePost(post scraper.ExtractedPost) scraper.ExtractedPost {
	cp := post
	cp.Images = append([]scraper.ImageRef(nil), post.Images...)
	cp.Tags = append([]string(nil), post.Tags...)
	return cp
}
