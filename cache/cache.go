package cache

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/config"
)

// The cache holds large read-only objects that should be loaded once per
// process and shared, such as opening books.

type cache struct {
	sync.Mutex
	objects map[string]interface{}
}

type loadFunc func(cfg *config.Config, key string) (interface{}, error)

type readFunc func(data []byte) (interface{}, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache

func (c *cache) load(cfg *config.Config, key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(cfg, key)
	if err != nil {
		return err
	}
	c.objects[key] = obj

	return nil
}

func (c *cache) get(cfg *config.Config, key string, loadFunc loadFunc) (interface{}, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("getting obj from cache")
		return obj, nil
	}
	if err := c.load(cfg, key, loadFunc); err != nil {
		return nil, err
	}
	return c.objects[key], nil
}

func (c *cache) populate(key string, data []byte, readFunc readFunc) error {
	obj, err := readFunc(data)
	if err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	c.objects[key] = obj
	return nil
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = &cache{objects: make(map[string]interface{})}
}

var createOnce sync.Once

func globalCache() *cache {
	createOnce.Do(func() {
		if GlobalObjectCache == nil {
			CreateGlobalObjectCache()
		}
	})
	return GlobalObjectCache
}

// Load returns the object stored under name, calling loadFunc the first
// time. Failed loads are not cached.
func Load(cfg *config.Config, name string, loadFunc loadFunc) (interface{}, error) {
	return globalCache().get(cfg, name, loadFunc)
}

// Populate stores the object built by readFunc from data under key,
// replacing any earlier one.
func Populate(key string, data []byte, readFunc readFunc) error {
	return globalCache().populate(key, data, readFunc)
}

// Remove drops key from the cache.
func Remove(key string) {
	c := globalCache()
	c.Lock()
	defer c.Unlock()
	delete(c.objects, key)
}

// Open opens a data file for a load function.
func Open(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	return f, nil
}
