package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type Freshness int

const (
	Fresh Freshness = iota
	Stale
	Expired
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "expired"
	}
}

// Policy - окна свежести для одного вида ключей
type Policy struct {
	StaleAfter  time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	ExpireAfter time.Duration `mapstructure:"expire_after" yaml:"expire_after"`
}

// Entry - значение в кэше вместе с моментом получения
type Entry struct {
	Value       any
	FetchedAt   time.Time
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	Invalidated bool
}

// Freshness считает состояние записи на момент now
func (e Entry) Freshness(now time.Time) Freshness {
	if e.Invalidated {
		return Expired
	}
	age := now.Sub(e.FetchedAt)
	switch {
	case age < e.StaleAfter:
		return Fresh
	case age < e.ExpireAfter:
		return Stale
	default:
		return Expired
	}
}

type Clock func() time.Time

// Cache хранит записи сервера по ключам. Ошибок не возвращает.
type Cache struct {
	entries map[Key]Entry
	mtx     *sync.RWMutex
	now     Clock
}

type Option func(*Cache)

func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.now = clock
	}
}

func New(options ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]Entry),
		mtx:     &sync.RWMutex{},
		now:     time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Cache) Now() time.Time {
	return c.now()
}

func (c *Cache) Get(key Key) (Entry, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Lookup возвращает запись вместе с её свежестью
func (c *Cache) Lookup(key Key) (Entry, Freshness, bool) {
	e, ok := c.Get(key)
	if !ok {
		return Entry{}, Expired, false
	}
	return e, e.Freshness(c.now()), true
}

func (c *Cache) Put(key Key, value any, policy Policy) Entry {
	e := Entry{
		Value:       value,
		FetchedAt:   c.now(),
		StaleAfter:  policy.StaleAfter,
		ExpireAfter: policy.ExpireAfter,
	}

	c.mtx.Lock()
	c.entries[key] = e
	c.mtx.Unlock()
	return e
}

// Replace меняет значение, сохраняя время получения и флаг инвалидации
func (c *Cache) Replace(key Key, value any) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.Value = value
	c.entries[key] = e
	return true
}

// Restore кладёт обратно ранее снятую запись как есть
func (c *Cache) Restore(key Key, e Entry, existed bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !existed {
		delete(c.entries, key)
		return
	}
	c.entries[key] = e
}

// Invalidate помечает подходящие записи просроченными, данные остаются
func (c *Cache) Invalidate(match Matcher) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	n := 0
	for k, e := range c.entries {
		if !match(k) {
			continue
		}
		e.Invalidated = true
		c.entries[k] = e
		n++
	}
	return n
}

func (c *Cache) Remove(key Key) {
	c.mtx.Lock()
	delete(c.entries, key)
	c.mtx.Unlock()
}

// Keys возвращает отсортированные ключи, подходящие под matcher
func (c *Cache) Keys(match Matcher) []Key {
	c.mtx.RLock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		if match == nil || match(k) {
			keys = append(keys, k)
		}
	}
	c.mtx.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (c *Cache) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.entries)
}

// Prune удаляет записи, просроченные по времени дольше grace
func (c *Cache) Prune(grace time.Duration) int {
	now := c.now()

	c.mtx.Lock()
	defer c.mtx.Unlock()

	n := 0
	for k, e := range c.entries {
		if now.Sub(e.FetchedAt) >= e.ExpireAfter+grace {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Value достаёт типизированное значение
func Value[T any](c *Cache, key Key) (T, Freshness, bool) {
	var zero T
	e, fr, ok := c.Lookup(key)
	if !ok {
		return zero, Expired, false
	}
	v, ok := e.Value.(T)
	if !ok {
		return zero, Expired, false
	}
	return v, fr, true
}

// Matcher выбирает ключи для инвалидации
type Matcher func(Key) bool

func Exact(key Key) Matcher {
	return func(k Key) bool { return k == key }
}

func Prefix(prefix string) Matcher {
	return func(k Key) bool { return strings.HasPrefix(string(k), prefix) }
}

func AllLists() Matcher {
	return Prefix(listPrefix)
}

func Any(matchers ...Matcher) Matcher {
	return func(k Key) bool {
		for _, m := range matchers {
			if m(k) {
				return true
			}
		}
		return false
	}
}
