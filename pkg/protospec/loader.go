package protospec

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Loader reads specification documents from disk with a cache keyed by
// path, so repeated loads of the same source are cheap. Each protocol
// typically loads its document once at initialization and shares the
// resulting *Document.
type Loader struct {
	mu     sync.RWMutex
	cache  map[string]*Document
	logger *slog.Logger
	opts   options
}

type options struct {
	logger  *slog.Logger
	caching bool
}

// Option configures a Loader.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithoutCache disables the path-keyed document cache.
func WithoutCache() Option {
	return func(o *options) {
		o.caching = false
	}
}

// NewLoader creates a document loader.
func NewLoader(opts ...Option) *Loader {
	o := options{
		logger:  slog.Default(),
		caching: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{
		cache:  make(map[string]*Document),
		logger: o.logger,
		opts:   o,
	}
}

// Load reads and parses the document at path. With caching enabled the
// same *Document is returned for repeated loads of the same path.
func (l *Loader) Load(path string) (*Document, error) {
	if l.opts.caching {
		l.mu.RLock()
		cached, ok := l.cache[path]
		l.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading specification document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded specification document",
		"path", path, "blocks", len(doc.Blocks), "codes", len(doc.Codes))

	if l.opts.caching {
		l.mu.Lock()
		l.cache[path] = doc
		l.mu.Unlock()
	}
	return doc, nil
}

// ClearCache drops all cached documents.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*Document)
}
