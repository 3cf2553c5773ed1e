package redisdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client wraps a redis connection that is established once, on first use.
type Client struct {
	addr     string
	password string
	db       int

	once sync.Once
	rdb  *redis.Client
	err  error
}

func NewClient(addr, password string, db int) *Client {
	return &Client{addr: addr, password: password, db: db}
}

func (c *Client) conn(ctx context.Context) (*redis.Client, error) {
	c.once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.addr,
			Password: c.password,
			DB:       c.db,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.err = fmt.Errorf("err connect redis %s: %w", c.addr, err)
			return
		}
		c.rdb = rdb
	})
	return c.rdb, c.err
}

// Push prepends a value to the list stored at key.
func (c *Client) Push(ctx context.Context, key, value string) error {
	rdb, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, key, value).Err()
}

// Range returns the full list stored at key, most recent first.
func (c *Client) Range(ctx context.Context, key string) ([]string, error) {
	rdb, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return rdb.LRange(ctx, key, 0, -1).Result()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	rdb, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return rdb.Del(ctx, key).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	rdb, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
