package catalog

import "sort"

// IDSet is an unordered set of catalog identifiers. Zero is never a valid id.
type IDSet map[uint]struct{}

func NewIDSet(ids ...uint) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

func (s IDSet) Add(id uint) {
	if id == 0 {
		return
	}
	s[id] = struct{}{}
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

func (s IDSet) Sorted() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CountIn returns how many distinct ids of the slice are members of the set.
func (s IDSet) CountIn(ids []uint) int {
	seen := make(map[uint]struct{}, len(ids))
	n := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.Has(id) {
			n++
		}
	}
	return n
}

func (s IDSet) Intersects(ids []uint) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}
