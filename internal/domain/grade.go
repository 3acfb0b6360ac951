package domain

import "strings"

// Grade is a five-letter summary score for nutritional quality or
// environmental impact.
type Grade string

const (
	GradeA       Grade = "A"
	GradeB       Grade = "B"
	GradeC       Grade = "C"
	GradeD       Grade = "D"
	GradeE       Grade = "E"
	GradeUnknown Grade = "unknown"
)

// NormalizeGrade canonicalizes heterogeneous grade representations from
// external sources into the fixed letter scale. Free-form casing, padding,
// and not-applicable markers all collapse to GradeUnknown; raw source
// strings are never propagated.
func NormalizeGrade(raw string) Grade {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a":
		return GradeA
	case "b":
		return GradeB
	case "c":
		return GradeC
	case "d":
		return GradeD
	case "e":
		return GradeE
	default:
		return GradeUnknown
	}
}

// Known reports whether the grade is one of the five letters.
func (g Grade) Known() bool {
	return g != GradeUnknown && g != ""
}

// Rank orders grades best-first: A=1 through E=5, unknown last.
func (g Grade) Rank() int {
	switch g {
	case GradeA:
		return 1
	case GradeB:
		return 2
	case GradeC:
		return 3
	case GradeD:
		return 4
	case GradeE:
		return 5
	default:
		return 6
	}
}
