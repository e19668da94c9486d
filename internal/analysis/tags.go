package analysis

import (
	"fmt"
	"strings"
)

// Tag is a qualitative marker on a recorded test.
type Tag uint8

// Declaration order is the canonical serialization order.
const (
	Passed Tag = iota
	Failed
	AlwaysExecute
)

var tagNames = [...]string{
	Passed:        "PASSED",
	Failed:        "FAILED",
	AlwaysExecute: "ALWAYS_EXECUTE",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// ParseTag parses a tag name, case-insensitively.
func ParseTag(s string) (Tag, error) {
	for i, name := range tagNames {
		if strings.EqualFold(s, name) {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tag %q", s)
}

// TagSet is a set of tags.
type TagSet uint8

// NewTagSet builds a set from tags.
func NewTagSet(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s = s.With(t)
	}
	return s
}

// ParseTagSet parses tag names into a set.
func ParseTagSet(names []string) (TagSet, error) {
	var s TagSet
	for _, n := range names {
		t, err := ParseTag(n)
		if err != nil {
			return 0, err
		}
		s = s.With(t)
	}
	return s, nil
}

// Has reports whether t is in the set.
func (s TagSet) Has(t Tag) bool {
	return s&(1<<t) != 0
}

// With returns the set with t added.
func (s TagSet) With(t Tag) TagSet {
	return s | 1<<t
}

// Tags returns the members in canonical order.
func (s TagSet) Tags() []Tag {
	var out []Tag
	for i := range tagNames {
		if s.Has(Tag(i)) {
			out = append(out, Tag(i))
		}
	}
	return out
}

// Strings returns the member names in canonical order.
func (s TagSet) Strings() []string {
	tags := s.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Validate checks that exactly one of PASSED and FAILED is present.
func (s TagSet) Validate() error {
	if s.Has(Passed) == s.Has(Failed) {
		return fmt.Errorf("tags %v must contain exactly one of PASSED and FAILED", s.Strings())
	}
	return nil
}

func (s TagSet) String() string {
	return "[" + strings.Join(s.Strings(), ", ") + "]"
}
