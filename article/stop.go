package article

import (
	"fmt"
	"time"
)

// StopKind tags which rule a StopCondition applies.
type StopKind int

const (
	// StopByCount stops after a fixed number of articles.
	StopByCount StopKind = iota + 1
	// StopByDate stops at the first article published at or before a cutoff.
	StopByDate
)

func (k StopKind) String() string {
	switch k {
	case StopByCount:
		return "num"
	case StopByDate:
		return "date"
	default:
		return "unknown"
	}
}

// StopCondition bounds how many articles a run collects. The zero value is
// not valid; build one with ByCount or ByDate.
type StopCondition struct {
	kind   StopKind
	target int
	cutoff time.Time
}

// ByCount returns a condition satisfied once target articles were collected.
func ByCount(target int) StopCondition {
	return StopCondition{kind: StopByCount, target: target}
}

// ByDate returns a condition satisfied by the first article published at or
// before cutoff.
func ByDate(cutoff time.Time) StopCondition {
	return StopCondition{kind: StopByDate, cutoff: cutoff}
}

// Kind returns the rule this condition applies.
func (s StopCondition) Kind() StopKind {
	return s.kind
}

// Target returns the article count for StopByCount conditions.
func (s StopCondition) Target() int {
	return s.target
}

// Cutoff returns the publication cutoff for StopByDate conditions.
func (s StopCondition) Cutoff() time.Time {
	return s.cutoff
}

func (s StopCondition) String() string {
	switch s.kind {
	case StopByCount:
		return fmt.Sprintf("num=%d", s.target)
	case StopByDate:
		return "date=" + s.cutoff.Format("2006-01-02")
	default:
		return "none"
	}
}

// Evaluate checks a single article against the condition. keep reports
// whether the article belongs to the run's output and done reports whether
// the run is complete once the article has been handled.
//
// A date condition excludes the boundary article (published == cutoff). A
// count condition keeps the article that reaches the target.
func (s StopCondition) Evaluate(a Article) (keep, done bool) {
	switch s.kind {
	case StopByDate:
		if !a.Published.After(s.cutoff) {
			return false, true
		}
		return true, false
	case StopByCount:
		return true, a.Seq >= s.target
	default:
		return true, false
	}
}
