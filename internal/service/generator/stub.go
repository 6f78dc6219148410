package generator

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/sentiforge/backend/internal/analysis/sentiment"
)

// Stub synthesizes text from sentiment-keyed templates. It keeps the system
// functional with no model dependency and is fully deterministic for a fixed
// (prompt, label, options) triple, which the tests rely on.
type Stub struct{}

// NewStub returns the template-based generator.
func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) Name() string {
	return "stub"
}

type contextualTemplate struct {
	keywords []string
	text     string
}

var contextualTemplates = map[sentiment.Label][]contextualTemplate{
	sentiment.Positive: {
		{
			keywords: []string{"promot", "success", "achiev", "win", "won"},
			text:     "Excitement filled the room as congratulations poured in. All the hard work had finally paid off, and the future looked brighter than ever.",
		},
		{
			keywords: []string{"love", "happy", "joy", "excit", "great", "sunny"},
			text:     "What a wonderful day, I love sunny days and everything about it! The joy was contagious, spreading to everyone nearby.",
		},
		{
			keywords: []string{"birth", "baby", "wedding", "marry"},
			text:     "Tears of joy flowed freely as everyone celebrated together. The happiness in the air was palpable, creating memories that would last a lifetime.",
		},
	},
	sentiment.Negative: {
		{
			keywords: []string{"traffic", "late", "delay", "stuck"},
			text:     "The endless waiting and frustration built up with every passing minute. It was one of those days when nothing seemed to go right.",
		},
		{
			keywords: []string{"fail", "lost", "broke", "bad", "terrible"},
			text:     "Disappointment washed over like a wave. The setback felt overwhelming, making it hard to see any silver lining.",
		},
		{
			keywords: []string{"hate", "angry", "frustrat", "annoy"},
			text:     "The irritation was almost unbearable. Every little thing seemed to compound the frustration, creating a spiral of negativity.",
		},
	},
	sentiment.Neutral: {
		{
			keywords: []string{"coffee", "tea", "breakfast", "lunch", "dinner"},
			text:     "It was a calm and ordinary moment, just another part of the usual routine. The familiar ritual provided a sense of normalcy.",
		},
		{
			keywords: []string{"work", "office", "meeting", "email"},
			text:     "The day proceeded with its typical rhythm. Tasks were completed methodically, one after another, without any particular urgency.",
		},
		{
			keywords: []string{"walk", "went", "saw", "did"},
			text:     "Nothing particularly noteworthy followed. It was simply another ordinary experience in the flow of daily life.",
		},
	},
}

var defaultTemplates = map[sentiment.Label]string{
	sentiment.Positive: "The positive energy was infectious. Everything seemed to fall perfectly into place, creating a sense of accomplishment and satisfaction.",
	sentiment.Negative: "The situation felt increasingly difficult to handle. One problem led to another, creating a cascade of complications.",
	sentiment.Neutral:  "Things continued in their usual pattern. Neither particularly good nor bad, just another regular moment passing by.",
}

// variantPool supplies additional candidates beyond the contextual line.
var variantPool = map[sentiment.Label][]string{
	sentiment.Positive: {
		"The atmosphere was electric with excitement, and everyone shared in the joy of the moment.",
		"This was a moment to celebrate; the feeling of accomplishment was overwhelming.",
		"Success felt incredible, and the day only seemed to get better from there.",
		"A quiet sense of delight settled in, the kind that lingers long after the moment passes.",
		"Every small detail seemed to glow a little, and it was hard to stop smiling.",
	},
	sentiment.Negative: {
		"The frustration was overwhelming, and nothing seemed to go as planned.",
		"This was incredibly disappointing, and the situation felt close to hopeless.",
		"It was exhausting and demoralizing, one setback stacking onto the next.",
		"A heavy mood settled in that no amount of effort seemed able to lift.",
		"The whole thing left a bitter aftertaste that was hard to shake off.",
	},
	sentiment.Neutral: {
		"It was part of the daily routine, and the day continued as usual.",
		"Nothing particularly noteworthy followed; it was a typical occurrence.",
		"The routine proceeded normally, one unremarkable step after another.",
		"Time passed at its ordinary pace, neither dragging nor rushing.",
		"It blended into the week like any other small, forgettable moment.",
	},
}

// Generate picks a contextual template for the prompt, then fills remaining
// candidates from the per-sentiment pool starting at a prompt-derived index.
func (s *Stub) Generate(_ context.Context, prompt string, label sentiment.Label, opts Options) ([]string, error) {
	if _, ok := defaultTemplates[label]; !ok {
		label = sentiment.Neutral
	}

	count := opts.NumCandidates
	if count < 1 {
		count = 1
	}

	out := make([]string, 0, count)
	out = append(out, Truncate(contextualLine(prompt, label), opts.MaxLength))

	pool := variantPool[label]
	start := promptIndex(prompt, len(pool))
	for i := 0; len(out) < count && i < len(pool); i++ {
		out = append(out, Truncate(pool[(start+i)%len(pool)], opts.MaxLength))
	}

	return out, nil
}

func contextualLine(prompt string, label sentiment.Label) string {
	lowered := strings.ToLower(prompt)
	for _, tmpl := range contextualTemplates[label] {
		for _, keyword := range tmpl.keywords {
			if strings.Contains(lowered, keyword) {
				return tmpl.text
			}
		}
	}
	return defaultTemplates[label]
}

func promptIndex(prompt string, modulo int) int {
	if modulo <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return int(h.Sum32() % uint32(modulo))
}
