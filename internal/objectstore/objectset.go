package objectstore

import (
	"fmt"
	"iter"
	"slices"
)

// Object is anything that can be stored in an ObjectSet. The name is the
// key of the object inside the set.
type Object interface {
	Name() string
}

type ObjectSet[T Object] map[string]T

func (m *ObjectSet[T]) Insert(obj T) error {
	if m.Contains(obj) {
		return fmt.Errorf("object %s already present in set", obj.Name())
	}
	(*m)[obj.Name()] = obj
	return nil
}

func (m *ObjectSet[T]) InsertOrReplace(obj T) {
	(*m)[obj.Name()] = obj
}

func (set *ObjectSet[T]) Contains(obj T) bool {
	_, ok := (*set)[obj.Name()]
	return ok
}

func (m *ObjectSet[T]) Get(name string) (T, bool) {
	obj, ok := (*m)[name]
	return obj, ok
}

// Remove deletes the object named name and returns it. Removing an absent
// name is not an error.
func (m *ObjectSet[T]) Remove(name string) (T, bool) {
	obj, ok := (*m)[name]
	if ok {
		delete(*m, name)
	}
	return obj, ok
}

func (m *ObjectSet[T]) Len() int {
	return len(*m)
}

func (m *ObjectSet[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, sv := range *m {
			if !yield(sv) {
				return
			}
		}
	}
}

// Sorted iterates over the objects by name, for outputs that have to be
// stable (descriptions, debug pages).
func (m *ObjectSet[T]) Sorted() iter.Seq[T] {
	names := make([]string, 0, len(*m))
	for name := range *m {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(yield func(T) bool) {
		for _, name := range names {
			if !yield((*m)[name]) {
				return
			}
		}
	}
}

// Values returns a copy of the set content.
func (m *ObjectSet[T]) Values() []T {
	out := make([]T, 0, len(*m))
	for _, obj := range *m {
		out = append(out, obj)
	}
	return out
}
