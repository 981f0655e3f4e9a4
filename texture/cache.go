package texture

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
)

// Cache keeps recently loaded textures so repeated renders (tiles, frames of
// a sequence) do not reopen the same files. Safe for concurrent use.
//
// Evicted textures are closed, so the cache must hold at least as many
// entries as a scene uses at once.
type Cache struct {
	lru *lru.Cache // path -> Texture
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.NewWithEvict(size, func(key, value interface{}) {
		if err := value.(Texture).Close(); err != nil {
			slog.Warn("failed to close texture", "path", key, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Load returns the cached texture for path, loading it on a miss. An empty
// path yields the zero Texture.
func (c *Cache) Load(path string) (Texture, error) {
	if path == "" {
		return Texture{}, nil
	}
	if v, ok := c.lru.Get(path); ok {
		return v.(Texture), nil
	}
	t, err := Load(path)
	if err != nil {
		return Texture{}, err
	}
	c.lru.Add(path, t)
	return t, nil
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Close evicts and closes every cached texture.
func (c *Cache) Close() {
	c.lru.Purge()
}
