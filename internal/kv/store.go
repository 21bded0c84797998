// Package kv implements the abstract KVStore the persistence adapter is
// built on (spec.md §6 "KVStore (consumed)"): a string-keyed synchronous
// get/set/delete/list interface over opaque JSON-like documents, namespaced
// with a configurable key prefix.
package kv

import "errors"

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is the abstract KVStore. Values are opaque byte slices (callers
// marshal/unmarshal their own JSON); implementations never interpret them.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// List returns every key with the given prefix.
	List(prefix string) ([]string, error)
}
