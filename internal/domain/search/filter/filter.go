package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a tag filter with must/should/must_not boolean semantics.
// It is evaluated on scored hits and never prunes the segment scan.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Keys returns every tag key referenced by the expression.
func (e Expression) Keys() []string {
	var keys []string
	for _, group := range [][]Condition{e.must, e.should, e.mustNot} {
		for _, c := range group {
			keys = append(keys, c.key)
		}
	}
	return keys
}

// Matches evaluates the expression against a document's tags.
// All must conditions hold, at least one should condition holds when any
// are given, and no must_not condition holds.
func (e Expression) Matches(tags map[string]string) bool {
	for _, c := range e.must {
		if !c.Matches(tags) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.Matches(tags) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, c := range e.should {
		if c.Matches(tags) {
			return true
		}
	}
	return false
}

// String renders a stable form usable in cache keys.
func (e Expression) String() string {
	if e.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("must=%v should=%v must_not=%v", e.must, e.should, e.mustNot)
}

// Condition is an exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the tag field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Matches reports whether tags carry the expected value.
func (c Condition) Matches(tags map[string]string) bool {
	v, ok := tags[c.key]
	return ok && v == c.match
}

// String renders key=match.
func (c Condition) String() string { return c.key + "=" + c.match }
