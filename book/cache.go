package book

import (
	_ "embed"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/cache"
	"github.com/domino14/connect4/config"
)

// DefaultName selects the book compiled into the binary.
const DefaultName = "default"

var CacheKeyPrefix = "book:"

//go:embed data/default.book
var defaultBookData []byte

var defaultBook = sync.OnceValues(func() (*Book, error) {
	return Parse(defaultBookData)
})

// Default returns the embedded book. It is parsed once and shared.
func Default() (*Book, error) {
	return defaultBook()
}

// CacheLoadFunc is the function that loads a book into the global cache.
func CacheLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	name := strings.TrimPrefix(key, CacheKeyPrefix)
	if name == DefaultName {
		return Default()
	}
	filename := name
	if !filepath.IsAbs(filename) && cfg != nil {
		filename = filepath.Join(cfg.GetString(config.ConfigDataPath), filename)
	}
	f, err := cache.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Read(f)
	if err != nil {
		return nil, err
	}
	log.Info().Str("filename", filename).Int("records", b.Len()).
		Int("max-depth", b.MaxDepth()).Msg("loaded-opening-book")
	return b, nil
}

// CacheReadFunc converts raw data when populating the global cache.
func CacheReadFunc(data []byte) (interface{}, error) {
	return Parse(data)
}

// Set parses a book from bytes and caches it under name.
func Set(name string, data []byte) error {
	return cache.Populate(CacheKeyPrefix+name, data, CacheReadFunc)
}

// Get loads a named book from the cache or from a file. An empty name or
// DefaultName returns the embedded book; other names are paths, relative
// ones resolved against the data path.
func Get(cfg *config.Config, name string) (*Book, error) {
	if name == "" {
		name = DefaultName
	}
	obj, err := cache.Load(cfg, CacheKeyPrefix+name, CacheLoadFunc)
	if err != nil {
		return nil, err
	}
	ret, ok := obj.(*Book)
	if !ok {
		return nil, errors.New("could not read opening book from cache")
	}
	return ret, nil
}

// FromConfig returns the book selected by cfg, or nil when books are
// disabled.
func FromConfig(cfg *config.Config) (*Book, error) {
	if cfg.GetBool(config.ConfigBookDisabled) {
		log.Info().Msg("opening-book-disabled")
		return nil, nil
	}
	return Get(cfg, cfg.GetString(config.ConfigBookPath))
}
