// Package redis holds the shared-state adapters used when several
// dispatcher instances run side by side: the refresh lock, the refreshed
// token cache and the feedback store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key written by this package.
const keyPrefix = "sercha-dispatch:"

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
