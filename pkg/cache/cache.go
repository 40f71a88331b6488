package cache

import (
	"time"

	"github.com/plgd-dev/coaps/pkg/sync"
)

// Element wraps a cached value with its expiration.
type Element[T any] struct {
	validUntil time.Time
	data       T
	onExpire   func(d T)
}

// NewElement creates element that can be stored in the cache. A zero validUntil never expires.
func NewElement[T any](data T, validUntil time.Time, onExpire func(d T)) *Element[T] {
	if onExpire == nil {
		onExpire = func(d T) {
			// NO-OP as default
		}
	}
	return &Element[T]{data: data, validUntil: validUntil, onExpire: onExpire}
}

func (e *Element[T]) IsExpired(now time.Time) bool {
	if e.validUntil.IsZero() {
		return false
	}
	return now.After(e.validUntil)
}

func (e *Element[T]) Data() T {
	return e.data
}

// Cache is a concurrent map of expiring elements.
//
// An element leaves the cache exactly once: through LoadAndDelete, LoadAndDeleteAll or
// CheckExpirations. The onExpire callback runs only when the expiration sweep is the
// one that removed the element.
type Cache[K comparable, V any] struct {
	data *sync.Map[K, *Element[V]]
}

// NewCache creates a new cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		data: sync.NewMap[K, *Element[V]](),
	}
}

// LoadOrStore loads or creates a new element for key.
//
// If an element for the key exists then this element is returned and loaded is true.
// Otherwise e is stored and returned with loaded set to false.
func (c *Cache[K, V]) LoadOrStore(key K, e *Element[V]) (actual *Element[V], loaded bool) {
	return c.data.LoadOrStore(key, e)
}

// LoadAndDelete removes the element for key and returns it.
func (c *Cache[K, V]) LoadAndDelete(key K) (*Element[V], bool) {
	return c.data.LoadAndDelete(key)
}

// CheckExpirations removes every element expired at now and invokes its onExpire function.
func (c *Cache[K, V]) CheckExpirations(now time.Time) {
	c.data.Range(func(key K, e *Element[V]) bool {
		if !e.IsExpired(now) {
			return true
		}
		if removed, ok := c.data.LoadAndDelete(key); ok && removed == e {
			e.onExpire(e.data)
		}
		return true
	})
}

// LoadAndDeleteAll removes all elements from the cache and returns their data.
func (c *Cache[K, V]) LoadAndDeleteAll() map[K]V {
	res := make(map[K]V)
	for key, value := range c.data.LoadAndDeleteAll() {
		res[key] = value.Data()
	}
	return res
}

// Length returns number of cached elements, expired ones included.
func (c *Cache[K, V]) Length() int {
	return c.data.Length()
}
