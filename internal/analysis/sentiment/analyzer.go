package sentiment

import "strings"

// Label is the coarse sentiment classification attached to generated text.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// ParseLabel normalizes user-supplied sentiment values.
func ParseLabel(raw string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return Positive, true
	case "negative":
		return Negative, true
	case "neutral":
		return Neutral, true
	default:
		return "", false
	}
}

// Labels lists the closed label set in display order.
func Labels() []Label {
	return []Label{Positive, Negative, Neutral}
}

// Result carries a label together with a bounded confidence score.
type Result struct {
	Label Label
	Score float64
}

var keywordBuckets = map[Label][]string{
	Positive: {
		"love", "happy", "joy", "great", "wonderful", "amazing", "awesome", "excellent",
		"fantastic", "beautiful", "excit", "delight", "success", "achiev", "win", "won",
		"promot", "celebrat", "perfect", "thank", "glad", "enjoy", "brilliant", "best",
	},
	Negative: {
		"hate", "sad", "angry", "terrible", "awful", "horrible", "bad", "worst",
		"fail", "lost", "broke", "disappoint", "frustrat", "annoy", "upset", "cry",
		"pain", "miser", "stress", "stuck", "delay", "ruin", "regret", "lonely",
	},
	Neutral: {
		"routine", "usual", "ordinary", "regular", "typical", "average", "meeting",
		"schedule", "report", "commute", "weather", "update",
	},
}

const matchWeight = 3

var punctuationBoost = map[Label]int{
	Positive: 2,
	Negative: 1,
}

// Analyze scores text against the keyword buckets and returns the winning
// label with a confidence in [0,1]. Empty or whitespace-only input maps to
// neutral with zero confidence; ties resolve to neutral.
func Analyze(text string) Result {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Result{Label: Neutral, Score: 0}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if word == "" {
				continue
			}
			if strings.Contains(normalized, word) {
				scores[label] += matchWeight
			}
		}
	}

	// Exclamation marks amplify whichever polarity already leads; a purely
	// neutral sentence stays neutral no matter how loud it is.
	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		if scores[Positive] > scores[Negative] {
			scores[Positive] += exclamations * punctuationBoost[Positive]
		} else if scores[Negative] > scores[Positive] {
			scores[Negative] += exclamations * punctuationBoost[Negative]
		}
	}

	best := Neutral
	bestScore := 0
	tied := false
	for _, label := range Labels() {
		switch {
		case scores[label] > bestScore:
			best = label
			bestScore = scores[label]
			tied = false
		case scores[label] == bestScore && bestScore > 0 && label != best:
			tied = true
		}
	}

	// Equal evidence for competing labels is no verdict at all.
	if bestScore == 0 || tied {
		return Result{Label: Neutral, Score: 0}
	}

	return Result{Label: best, Score: confidence(bestScore)}
}

// confidence maps a raw bucket score onto (0.5, 1.0]; a single keyword match
// lands just above even odds and additional evidence saturates toward 1.
func confidence(score int) float64 {
	val := 0.5 + float64(score)/20
	if val > 1 {
		return 1
	}
	return val
}
