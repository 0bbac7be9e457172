// Package conclusion implements the Indexed-Conclusion algebra: a
// two-sided set-with-exceptions value used throughout this module's
// indexes. A Conclusion is either Include(E) ("member at every occurrence
// timestamp except those in E") or Exclude(E) ("non-member at every
// timestamp except those in E"), where E is a set of integer occurrence
// timestamps. An empty or absent E means "no exceptions".
package conclusion

import "sort"

// Tag distinguishes the two Conclusion cases.
type Tag bool

const (
	Include Tag = true
	Exclude Tag = false
)

// Conclusion is an immutable-by-convention value; callers that need to
// mutate one should take a Clone() first, except where a method is
// explicitly documented as mutating in place (InsertException,
// RemoveException).
type Conclusion struct {
	tag        Tag
	exceptions map[int64]struct{} // nil means "no exceptions"
}

// New builds a Conclusion of the given tag with the given exception
// timestamps. An empty exceptions slice normalizes to a nil set.
func New(tag Tag, exceptions ...int64) Conclusion {
	c := Conclusion{tag: tag}
	for _, t := range exceptions {
		c.InsertException(t)
	}
	return c
}

// IncludeAll is the universal-include Conclusion: every occurrence is a
// member, no exceptions.
func IncludeAll() Conclusion { return Conclusion{tag: Include} }

// ExcludeAll is the universal-exclude Conclusion ("tombstone"): no
// occurrence is a member, no exceptions.
func ExcludeAll() Conclusion { return Conclusion{tag: Exclude} }

// Tag returns the Conclusion's tag.
func (c Conclusion) Tag() Tag { return c.tag }

// IsInclude reports whether c is tagged Include.
func (c Conclusion) IsInclude() bool { return c.tag == Include }

// IsExclude reports whether c is tagged Exclude.
func (c Conclusion) IsExclude() bool { return c.tag == Exclude }

// IsEmptyExclude reports whether c is Exclude with no exceptions, the
// universal non-member used as a tombstone entry.
func (c Conclusion) IsEmptyExclude() bool {
	return c.tag == Exclude && len(c.exceptions) == 0
}

// HasExceptions reports whether c carries a non-empty exception set.
func (c Conclusion) HasExceptions() bool { return len(c.exceptions) > 0 }

// Exceptions returns the sorted exception timestamps (empty slice if none).
func (c Conclusion) Exceptions() []int64 {
	out := make([]int64, 0, len(c.exceptions))
	for t := range c.exceptions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy of c.
func (c Conclusion) Clone() Conclusion {
	if len(c.exceptions) == 0 {
		return Conclusion{tag: c.tag}
	}
	cp := make(map[int64]struct{}, len(c.exceptions))
	for t := range c.exceptions {
		cp[t] = struct{}{}
	}
	return Conclusion{tag: c.tag, exceptions: cp}
}

// Equal reports structural equality: same tag, same exception set.
func (c Conclusion) Equal(other Conclusion) bool {
	if c.tag != other.tag {
		return false
	}
	if len(c.exceptions) != len(other.exceptions) {
		return false
	}
	for t := range c.exceptions {
		if _, ok := other.exceptions[t]; !ok {
			return false
		}
	}
	return true
}

// InsertException adds t to the exception set, mutating c in place.
func (c *Conclusion) InsertException(t int64) {
	if c.exceptions == nil {
		c.exceptions = make(map[int64]struct{}, 1)
	}
	c.exceptions[t] = struct{}{}
}

// RemoveException removes t from the exception set, mutating c in place.
// An emptied set normalizes to nil (absent).
func (c *Conclusion) RemoveException(t int64) {
	if c.exceptions == nil {
		return
	}
	delete(c.exceptions, t)
	if len(c.exceptions) == 0 {
		c.exceptions = nil
	}
}

// IncludeOccurrence reports whether timestamp t is a member under c.
func (c Conclusion) IncludeOccurrence(t int64) bool {
	_, excepted := c.exceptions[t]
	if c.tag == Include {
		return !excepted
	}
	return excepted
}

// ExcludeOccurrence is the complement of IncludeOccurrence.
func (c Conclusion) ExcludeOccurrence(t int64) bool {
	return !c.IncludeOccurrence(t)
}

// MinMaxExceptions returns the min and max exception timestamps, and
// false if there are none.
func (c Conclusion) MinMaxExceptions() (min, max int64, ok bool) {
	if len(c.exceptions) == 0 {
		return 0, 0, false
	}
	first := true
	for t := range c.exceptions {
		if first {
			min, max = t, t
			first = false
			continue
		}
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return min, max, true
}

// Negate flips the tag, preserving the exception set.
func Negate(c Conclusion) Conclusion {
	out := c.Clone()
	if out.tag == Include {
		out.tag = Exclude
	} else {
		out.tag = Include
	}
	return out
}

func union(a, b map[int64]struct{}) map[int64]struct{} {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[int64]struct{}, len(a)+len(b))
	for t := range a {
		out[t] = struct{}{}
	}
	for t := range b {
		out[t] = struct{}{}
	}
	return out
}

func intersect(a, b map[int64]struct{}) map[int64]struct{} {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make(map[int64]struct{})
	for t := range a {
		if _, ok := b[t]; ok {
			out[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func symmetricDifference(a, b map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{})
	for t := range a {
		if _, ok := b[t]; !ok {
			out[t] = struct{}{}
		}
	}
	for t := range b {
		if _, ok := a[t]; !ok {
			out[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func difference(a, b map[int64]struct{}) map[int64]struct{} {
	if len(a) == 0 {
		return nil
	}
	out := make(map[int64]struct{})
	for t := range a {
		if _, ok := b[t]; !ok {
			out[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeAnd combines a and b with the AND merge table: Include∧Include
// unions the exceptions, Exclude∧Exclude intersects them, and
// Include(Ei)∧Exclude(Ex) (either order) yields Exclude(Ei \ Ex).
func MergeAnd(a, b Conclusion) Conclusion {
	switch {
	case a.tag == Include && b.tag == Include:
		return Conclusion{tag: Include, exceptions: union(a.exceptions, b.exceptions)}
	case a.tag == Exclude && b.tag == Exclude:
		return Conclusion{tag: Exclude, exceptions: intersect(a.exceptions, b.exceptions)}
	case a.tag == Include && b.tag == Exclude:
		return Conclusion{tag: Exclude, exceptions: difference(a.exceptions, b.exceptions)}
	default: // a Exclude, b Include
		return Conclusion{tag: Exclude, exceptions: difference(b.exceptions, a.exceptions)}
	}
}

// MergeOr computes the union of a and b.
func MergeOr(a, b Conclusion) Conclusion {
	switch {
	case a.tag == Include && b.tag == Include:
		if a.exceptions == nil || b.exceptions == nil {
			return Conclusion{tag: Include}
		}
		return Conclusion{tag: Include, exceptions: symmetricDifference(a.exceptions, b.exceptions)}
	case a.tag == Exclude && b.tag == Exclude:
		return Conclusion{tag: Exclude, exceptions: union(a.exceptions, b.exceptions)}
	case a.tag == Include && b.tag == Exclude:
		return Conclusion{tag: Include, exceptions: difference(b.exceptions, a.exceptions)}
	default: // a Exclude, b Include
		return Conclusion{tag: Include, exceptions: difference(a.exceptions, b.exceptions)}
	}
}
