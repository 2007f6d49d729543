package entity

import "iter"

// List is the renderer-owned, ordered set of entities. Order is insertion order and is the
// draw order within a pipeline group.
type List struct {
	items []*Entity
}

// NewList creates a List holding entities in order.
func NewList(entities ...*Entity) *List {
	return &List{items: append([]*Entity(nil), entities...)}
}

// Push appends e.
func (l *List) Push(e *Entity) {
	l.items = append(l.items, e)
}

// Remove deletes the entity at i, keeping the order of the rest. It reports whether i was in range.
func (l *List) Remove(i int) bool {
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Len returns the number of entities.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the entity at i.
func (l *List) At(i int) *Entity {
	return l.items[i]
}

// All iterates the entities with their indices.
func (l *List) All() iter.Seq2[int, *Entity] {
	return func(yield func(int, *Entity) bool) {
		for i, e := range l.items {
			if !yield(i, e) {
				return
			}
		}
	}
}
