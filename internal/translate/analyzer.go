package translate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the count a word must exceed to be reported.
const DefaultThreshold = 2

// WordFrequency maps a normalized word to its occurrence count.
type WordFrequency map[string]int

// WordCount is one entry of a WordFrequency.
type WordCount struct {
	Word  string
	Count int
}

// Sorted returns the entries ordered by count descending, then word.
func (f WordFrequency) Sorted() []WordCount {
	out := make([]WordCount, 0, len(f))
	for w, c := range f {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// Analysis is the output of one translation pass.
type Analysis struct {
	Translated []string
	Repeated   WordFrequency
}

// AnalyzerConfig controls the translation stage.
type AnalyzerConfig struct {
	Source    string
	Threshold int
}

// Analyzer translates titles and reports words repeated across them.
type Analyzer struct {
	translator Translator
	cfg        AnalyzerConfig
	logger     *zap.Logger
}

// NewAnalyzer builds an Analyzer.
func NewAnalyzer(translator Translator, cfg AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if cfg.Source == "" {
		cfg.Source = "es"
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{translator: translator, cfg: cfg, logger: logger.Named("translate")}
}

// Analyze translates titles in order into target and counts repeated words.
// The first translation failure is returned.
func (a *Analyzer) Analyze(ctx context.Context, titles []string, target string) (Analysis, error) {
	translated := make([]string, 0, len(titles))
	for i, title := range titles {
		out, err := a.translator.Translate(ctx, title, a.cfg.Source, target)
		if err != nil {
			return Analysis{}, fmt.Errorf("translate title %d: %w", i+1, err)
		}
		a.logger.Debug("translated title", zap.Int("index", i+1), zap.String("title", out))
		translated = append(translated, out)
	}
	return Analysis{
		Translated: translated,
		Repeated:   CountRepeated(translated, a.cfg.Threshold),
	}, nil
}

// CountRepeated counts lowercase words across texts, ignoring punctuation,
// and keeps those seen more than threshold times.
func CountRepeated(texts []string, threshold int) WordFrequency {
	lower := cases.Lower(language.Und)
	counts := map[string]int{}
	for _, text := range texts {
		for _, word := range strings.Fields(lower.String(stripPunctuation(text))) {
			counts[word]++
		}
	}
	repeated := WordFrequency{}
	for w, c := range counts {
		if c > threshold {
			repeated[w] = c
		}
	}
	return repeated
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}
