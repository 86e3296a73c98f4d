package grid

import "sort"

// ColorSet is an ordered set of color indices. The zero value is an empty
// set ready for use. Iteration order is always ascending, which keeps the
// solver data files and the hardware sub-palette slot assignment stable.
type ColorSet struct {
	colors []uint8
}

// NewColorSet returns a set containing the given colors.
func NewColorSet(colors ...uint8) ColorSet {
	var s ColorSet
	for _, c := range colors {
		s.Insert(c)
	}
	return s
}

func (s ColorSet) search(c uint8) int {
	return sort.Search(len(s.colors), func(i int) bool {
		return s.colors[i] >= c
	})
}

// Has reports whether c is a member.
func (s ColorSet) Has(c uint8) bool {
	i := s.search(c)
	return i < len(s.colors) && s.colors[i] == c
}

// Insert adds c to the set.
func (s *ColorSet) Insert(c uint8) {
	i := s.search(c)
	if i < len(s.colors) && s.colors[i] == c {
		return
	}
	s.colors = append(s.colors, 0)
	copy(s.colors[i+1:], s.colors[i:])
	s.colors[i] = c
}

// Remove deletes c from the set if present.
func (s *ColorSet) Remove(c uint8) {
	i := s.search(c)
	if i < len(s.colors) && s.colors[i] == c {
		s.colors = append(s.colors[:i], s.colors[i+1:]...)
	}
}

// Len returns the number of members.
func (s ColorSet) Len() int {
	return len(s.colors)
}

// Colors returns the members in ascending order. The slice is shared;
// callers must not modify it.
func (s ColorSet) Colors() []uint8 {
	return s.colors
}

// IndexOf returns the 1-based rank of c in ascending order, or 0 when c is
// not a member. Rank 1..3 is the hardware sub-palette slot of the color.
func (s ColorSet) IndexOf(c uint8) int {
	i := s.search(c)
	if i < len(s.colors) && s.colors[i] == c {
		return i + 1
	}
	return 0
}

// Union returns a new set holding every member of s and t.
func (s ColorSet) Union(t ColorSet) ColorSet {
	u := s.Clone()
	for _, c := range t.colors {
		u.Insert(c)
	}
	return u
}

// ContainsAll reports whether every member of t is also a member of s.
func (s ColorSet) ContainsAll(t ColorSet) bool {
	for _, c := range t.colors {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Equal reports whether s and t have identical members.
func (s ColorSet) Equal(t ColorSet) bool {
	if len(s.colors) != len(t.colors) {
		return false
	}
	for i, c := range s.colors {
		if t.colors[i] != c {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s ColorSet) Clone() ColorSet {
	c := ColorSet{colors: make([]uint8, len(s.colors))}
	copy(c.colors, s.colors)
	return c
}
