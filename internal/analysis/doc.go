// Package analysis holds the test impact analysis record: the registry of
// compiled units, the per-test outcome and coverage facts, the canonical
// text codec whose hash versions the record, and the baseline merge.
//
// A TestImpactAnalysis is immutable. Merge always produces a new record and
// renumbers every unit reference through the unit identity, because unit ids
// are positions in a sorted registry and shift whenever the unit set changes.
package analysis
