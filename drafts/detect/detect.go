// Package detect guesses the delimiter convention used by a response
// sample. This is draft code for review - not yet integrated into the
// codebase.
package detect

import (
	"sort"
	"strings"

	"github.com/sift-ai/sift/internal/extract"
)

// Score is one preset's evidence in a sample.
type Score struct {
	Preset string
	Starts int
	Ends   int
}

// complete reports whether the sample contains at least one full
// start/end pair for this preset.
func (s Score) complete() bool {
	return s.Starts > 0 && s.Ends > 0
}

// Guess returns the preset most likely to match the sample, or false when
// no preset shows a complete delimiter pair. Ties break toward the longer
// start marker, since a longer match is less likely to be accidental.
func Guess(sample string) (string, bool) {
	scores := Scores(sample)
	var best *Score
	var bestLen int
	for i := range scores {
		s := &scores[i]
		if !s.complete() {
			continue
		}
		cfg, _ := extract.Preset(s.Preset)
		if best == nil || s.Starts > best.Starts ||
			(s.Starts == best.Starts && len(cfg.Start) > bestLen) {
			best = s
			bestLen = len(cfg.Start)
		}
	}
	if best == nil {
		return "", false
	}
	return best.Preset, true
}

// Scores counts delimiter occurrences for every preset.
func Scores(sample string) []Score {
	names := extract.PresetNames()
	sort.Strings(names)

	out := make([]Score, 0, len(names))
	for _, name := range names {
		cfg, _ := extract.Preset(name)
		out = append(out, Score{
			Preset: name,
			Starts: strings.Count(sample, cfg.Start),
			Ends:   strings.Count(sample, cfg.End),
		})
	}
	return out
}
