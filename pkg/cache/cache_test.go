package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddElement(t *testing.T) {
	cache := NewCache[string, string]()
	elem := NewElement("elem", time.Now().Add(time.Minute), nil)
	loadedElem, loaded := cache.LoadOrStore("abcd", elem)
	require.False(t, loaded)
	require.Equal(t, "elem", loadedElem.Data())

	elem2 := NewElement("elem2", time.Now().Add(time.Minute), nil)
	loadedElem2, loaded2 := cache.LoadOrStore("abcdefg", elem2)
	require.False(t, loaded2)
	require.Equal(t, "elem2", loadedElem2.Data())

	elem3 := NewElement("elem3", time.Now().Add(time.Minute), nil)
	loadedElem, loaded = cache.LoadOrStore("abcd", elem3)
	require.True(t, loaded)
	require.Equal(t, "elem", loadedElem.Data())
	require.Equal(t, 2, cache.Length())
}

func TestLoadAndDeleteElement(t *testing.T) {
	cache := NewCache[string, string]()
	_, loaded := cache.LoadAndDelete("abcd")
	require.False(t, loaded)

	cache.LoadOrStore("abcd", NewElement("elem", time.Now().Add(time.Minute), nil))
	loadedElem, loaded := cache.LoadAndDelete("abcd")
	require.True(t, loaded)
	require.Equal(t, "elem", loadedElem.Data())
	_, loaded = cache.LoadAndDelete("abcd")
	require.False(t, loaded)
	require.Equal(t, 0, cache.Length())
}

func TestElementExpiration(t *testing.T) {
	expired := 0
	cache := NewCache[string, string]()
	elem := NewElement("elem", time.Now().Add(time.Second), func(string) {
		expired++
	})
	loadedElem, _ := cache.LoadOrStore("abcd", elem)
	forever := NewElement("forever", time.Time{}, nil)
	cache.LoadOrStore("abcdef", forever)

	require.False(t, loadedElem.IsExpired(time.Now()))
	require.True(t, loadedElem.IsExpired(time.Now().Add(2*time.Second)))
	require.Equal(t, 0, expired)

	cache.CheckExpirations(time.Now().Add(2 * time.Second))
	require.Equal(t, 1, expired)
	cache.CheckExpirations(time.Now().Add(3 * time.Second))
	require.Equal(t, 1, expired)

	require.False(t, forever.IsExpired(time.Now().Add(time.Hour)))
	require.Equal(t, 1, cache.Length())
}

func TestExpirationRacesWithLoadAndDelete(t *testing.T) {
	cache := NewCache[int, int]()
	var expired, removed int
	var mutex sync.Mutex
	for i := 0; i < 100; i++ {
		cache.LoadOrStore(i, NewElement(i, time.Now().Add(-time.Millisecond), func(int) {
			mutex.Lock()
			expired++
			mutex.Unlock()
		}))
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cache.CheckExpirations(time.Now())
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if _, ok := cache.LoadAndDelete(i); ok {
				mutex.Lock()
				removed++
				mutex.Unlock()
			}
		}
	}()
	wg.Wait()
	require.Equal(t, 100, expired+removed)
}

func TestLoadAndDeleteAll(t *testing.T) {
	cache := NewCache[string, string]()
	cache.LoadOrStore("abcd", NewElement("elem", time.Now().Add(time.Minute), nil))
	cache.LoadOrStore("abcdef", NewElement("elem2", time.Now().Add(time.Minute), nil))
	require.Equal(t, map[string]string{"abcd": "elem", "abcdef": "elem2"}, cache.LoadAndDeleteAll())
	require.Equal(t, 0, cache.Length())
}
