package pool

import "github.com/okian/gifduel/pkg/logger"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
