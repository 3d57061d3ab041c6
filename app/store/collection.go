package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
)

var (
	ErrNotFound      = errors.New("store: record not found")
	ErrAlreadyExists = errors.New("store: record already exists")
	ErrInvalidPatch  = errors.New("store: invalid patch")
)

// CollectionConfig describes how a Collection identifies its records.
type CollectionConfig[T any] struct {
	Name string
	// IDField is the JSON name of the id field; patches may not touch it.
	// Defaults to "id".
	IDField string
	// ID returns the record id, or "" when it has none yet.
	ID func(T) string
	// SetID stores a generated id on a new record.
	SetID func(*T, int64)
	// Unique, when set, returns a secondary key that must be unique.
	Unique func(T) string
	// Clone returns a copy sharing no memory with its argument.
	Clone func(T) T
}

// Collection is one mutex-guarded table of the mock store. Every method
// hands out copies; callers never hold a live reference.
type Collection[T any] struct {
	cfg    CollectionConfig[T]
	faults *fault.Policy
	ids    *idGen

	mu    sync.RWMutex
	items []T
}

func newCollection[T any](cfg CollectionConfig[T], faults *fault.Policy, ids *idGen) *Collection[T] {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.Clone == nil {
		cfg.Clone = func(v T) T { return v }
	}
	return &Collection[T]{cfg: cfg, faults: faults, ids: ids}
}

func (c *Collection[T]) Name() string { return c.cfg.Name }

// load replaces the contents without delay or metrics.
func (c *Collection[T]) load(seed []T) {
	items := make([]T, len(seed))
	for i, v := range seed {
		items[i] = c.cfg.Clone(v)
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

func (c *Collection[T]) begin(ctx context.Context, op string) error {
	metrics.StoreOperations.WithLabelValues(c.cfg.Name, op).Inc()
	if err := c.faults.Wait(ctx); err != nil {
		return fmt.Errorf("store %s.%s: %w", c.cfg.Name, op, err)
	}
	return nil
}

func (c *Collection[T]) indexLocked(id string) int {
	for i, v := range c.items {
		if c.cfg.ID(v) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) selectLocked(q Query[T]) []T {
	out := make([]T, 0)
	for _, v := range c.items {
		if q.matches(v) {
			out = append(out, c.cfg.Clone(v))
		}
	}
	if q.Sort != nil {
		slices.SortStableFunc(out, q.Sort)
	}
	return out
}

// FindMany returns every match. With the store's fault probability the
// result is dropped instead; check Dropped before trusting an empty list.
func (c *Collection[T]) FindMany(ctx context.Context, q Query[T]) (Result[T], error) {
	if err := c.begin(ctx, "find_many"); err != nil {
		return Result[T]{}, err
	}
	if c.faults.Trip() {
		metrics.StoreDropped.WithLabelValues(c.cfg.Name).Inc()
		return Result[T]{dropped: true}, nil
	}

	c.mu.RLock()
	out := c.selectLocked(q)
	c.mu.RUnlock()

	return Result[T]{items: page(out, q.Skip, q.Take)}, nil
}

// FindFirst returns the first match, or nil.
func (c *Collection[T]) FindFirst(ctx context.Context, q Query[T]) (*T, error) {
	if err := c.begin(ctx, "find_first"); err != nil {
		return nil, err
	}

	c.mu.RLock()
	out := c.selectLocked(q)
	c.mu.RUnlock()

	out = page(out, q.Skip, 0)
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// FindUnique returns the record with id, or nil.
func (c *Collection[T]) FindUnique(ctx context.Context, id string) (*T, error) {
	if err := c.begin(ctx, "find_unique"); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		v := c.cfg.Clone(c.items[i])
		return &v, nil
	}
	return nil, nil
}

// Count returns the number of matches. It is never dropped.
func (c *Collection[T]) Count(ctx context.Context, q Query[T]) (int, error) {
	if err := c.begin(ctx, "count"); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, v := range c.items {
		if q.matches(v) {
			n++
		}
	}
	return n, nil
}

// Create appends item, assigning an id when it has none.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if err := c.begin(ctx, "create"); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.insertLocked(&item); err != nil {
		return zero, err
	}
	return c.cfg.Clone(item), nil
}

func (c *Collection[T]) insertLocked(item *T) error {
	if c.cfg.ID(*item) == "" {
		c.cfg.SetID(item, c.ids.next())
	}
	id := c.cfg.ID(*item)
	if c.indexLocked(id) >= 0 {
		return fmt.Errorf("%w: %s %s", ErrAlreadyExists, c.cfg.Name, id)
	}
	if c.cfg.Unique != nil {
		key := c.cfg.Unique(*item)
		for _, v := range c.items {
			if c.cfg.Unique(v) == key {
				return fmt.Errorf("%w: %s %q", ErrAlreadyExists, c.cfg.Name, key)
			}
		}
	}
	c.items = append(c.items, c.cfg.Clone(*item))
	return nil
}

// Update merges patch into the record shallowly: each top-level key
// replaces that whole field, nested objects included. Unknown keys and the
// id field are rejected with ErrInvalidPatch.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	if err := c.begin(ctx, "update"); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, c.cfg.Name, id)
	}
	updated, err := c.merge(c.items[i], patch)
	if err != nil {
		return zero, err
	}
	c.items[i] = updated
	return c.cfg.Clone(updated), nil
}

// Upsert patches the record when it exists and creates create otherwise.
// created reports which happened.
func (c *Collection[T]) Upsert(ctx context.Context, id string, create T, patch map[string]any) (result T, created bool, err error) {
	var zero T
	if err := c.begin(ctx, "upsert"); err != nil {
		return zero, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(id); i >= 0 {
		updated, err := c.merge(c.items[i], patch)
		if err != nil {
			return zero, false, err
		}
		c.items[i] = updated
		return c.cfg.Clone(updated), false, nil
	}

	if err := c.insertLocked(&create); err != nil {
		return zero, false, err
	}
	return c.cfg.Clone(create), true, nil
}

// Delete removes the record with id and reports whether it existed.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	if err := c.begin(ctx, "delete"); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true, nil
}

// DeleteTree removes the record with id and every record descending from
// it, where parent returns a record's parent id or "". It returns how many
// went; a missing root removes nothing.
func (c *Collection[T]) DeleteTree(ctx context.Context, id string, parent func(T) string) (int, error) {
	if err := c.begin(ctx, "delete_tree"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexLocked(id) < 0 {
		return 0, nil
	}
	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for _, v := range c.items {
			if p := parent(v); p != "" && doomed[p] && !doomed[c.cfg.ID(v)] {
				doomed[c.cfg.ID(v)] = true
				grew = true
			}
		}
	}

	before := len(c.items)
	c.items = slices.DeleteFunc(c.items, func(v T) bool { return doomed[c.cfg.ID(v)] })
	return before - len(c.items), nil
}

// Modify applies fn to a copy of the record with id while holding the
// write lock and stores the result unless fn fails. Concurrent Modify
// calls on one record never lose each other's changes.
func (c *Collection[T]) Modify(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var zero T
	if err := c.begin(ctx, "modify"); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, c.cfg.Name, id)
	}
	next := c.cfg.Clone(c.items[i])
	if err := fn(&next); err != nil {
		return zero, err
	}
	if c.cfg.ID(next) != id {
		return zero, fmt.Errorf("%w: %s cannot be changed", ErrInvalidPatch, c.cfg.IDField)
	}
	c.items[i] = next
	return c.cfg.Clone(next), nil
}

// merge applies patch to a copy of current. Nothing changes on error.
func (c *Collection[T]) merge(current T, patch map[string]any) (T, error) {
	var zero T
	if len(patch) == 0 {
		return zero, fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}

	out := c.cfg.Clone(current)
	rv := reflect.ValueOf(&out).Elem()
	fields := jsonFields(rv.Type())

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == c.cfg.IDField {
			return zero, fmt.Errorf("%w: %s cannot be changed", ErrInvalidPatch, key)
		}
		idx, ok := fields[key]
		if !ok {
			return zero, fmt.Errorf("%w: unknown field %q", ErrInvalidPatch, key)
		}

		fv := rv.FieldByIndex(idx)
		raw, err := json.Marshal(patch[key])
		if err != nil {
			return zero, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, key, err)
		}
		fresh := reflect.New(fv.Type())
		if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, key, err)
		}
		fv.Set(fresh.Elem())
	}
	return out, nil
}

func page[T any](s []T, skip, take int) []T {
	skip = max(skip, 0)
	if skip >= len(s) {
		return []T{}
	}
	s = s[skip:]
	if take > 0 && take < len(s) {
		s = s[:take]
	}
	return s
}

// Newest sorts records by a timestamp-like key, latest first.
func Newest[T any, K cmp.Ordered](key func(T) K) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(key(b), key(a)) }
}

// Oldest sorts records by key ascending.
func Oldest[T any, K cmp.Ordered](key func(T) K) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(key(a), key(b)) }
}
