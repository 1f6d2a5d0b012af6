package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a mock client for package tests.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
