// Package judge scores free-text country guesses against a target name.
package judge

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Points awarded to the acting player.
const (
	ExactPoints = 3
	FuzzyPoints = 2
)

// ErrEmptyAnswer is returned when the guess is blank after trimming.
var ErrEmptyAnswer = errors.New("please enter a value")

// Result is the verdict for a single guess.
type Result struct {
	Exact    bool `json:"exact"`
	Accepted bool `json:"accepted"`
	Distance int  `json:"distance"`
}

// Points returns the score for the verdict: 3 exact, 2 fuzzy, 0 otherwise.
func (r Result) Points() int {
	switch {
	case r.Exact:
		return ExactPoints
	case r.Accepted:
		return FuzzyPoints
	default:
		return 0
	}
}

// Judge normalizes raw and target and compares them by edit distance.
// Accepted is true for exact matches as well as fuzzy ones.
func Judge(raw, target string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, ErrEmptyAnswer
	}

	a := Normalize(raw)
	b := Normalize(target)

	if b == "" {
		// Only an answer that normalizes to nothing can match an empty target.
		ok := a == ""
		return Result{Exact: ok, Accepted: ok, Distance: len([]rune(a))}, nil
	}

	d := Distance(a, b)
	if d == 0 {
		return Result{Exact: true, Accepted: true}, nil
	}
	return Result{Accepted: d <= Threshold(b), Distance: d}, nil
}

// Threshold is the largest distance accepted for a normalized target:
// max(1, floor(len*0.2)).
func Threshold(normalizedTarget string) int {
	return max(1, len([]rune(normalizedTarget))/5)
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Normalize lowercases s, strips diacritics and keeps only a-z, whitespace
// and hyphens, then trims surrounding space.
func Normalize(s string) string {
	s = strings.ToLower(s)

	t := transform.Chain(norm.NFD, stripMarks)
	if decomposed, _, err := transform.String(t, s); err == nil {
		s = decomposed
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Distance is the Levenshtein distance between a and b, computed over runes
// with a single rolling row.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	row := make([]int, len(br)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(br); j++ {
			tmp := row[j]
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, prev+cost)
			prev = tmp
		}
	}
	return row[len(br)]
}
