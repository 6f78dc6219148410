package sentiment

import "testing"

func TestAnalyzePositivePrompt(t *testing.T) {
	result := Analyze("I love sunny days")
	if result.Label != Positive {
		t.Fatalf("expected positive label, got %s", result.Label)
	}
	if result.Score <= 0 || result.Score > 1 {
		t.Fatalf("score out of range: %f", result.Score)
	}
}

func TestAnalyzeNegativePrompt(t *testing.T) {
	result := Analyze("stuck in terrible traffic again, what an awful delay")
	if result.Label != Negative {
		t.Fatalf("expected negative label, got %s", result.Label)
	}
}

func TestAnalyzeEmptyInputIsNeutral(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		result := Analyze(input)
		if result.Label != Neutral {
			t.Fatalf("expected neutral for %q, got %s", input, result.Label)
		}
		if result.Score != 0 {
			t.Fatalf("expected zero score for %q, got %f", input, result.Score)
		}
	}
}

func TestAnalyzeUnrecognizedTextIsNeutral(t *testing.T) {
	result := Analyze("the quick brown fox jumps over the fence")
	if result.Label != Neutral {
		t.Fatalf("expected neutral label, got %s", result.Label)
	}
}

func TestAnalyzeTieResolvesToNeutral(t *testing.T) {
	// "love" and "hate" carry equal weight, and the exclamation boost only
	// amplifies a polarity that already leads.
	for _, input := range []string{"I love and hate this", "I love and hate this!!!"} {
		result := Analyze(input)
		if result.Label != Neutral {
			t.Fatalf("expected neutral for %q, got %s", input, result.Label)
		}
		if result.Score != 0 {
			t.Fatalf("expected zero score for %q, got %f", input, result.Score)
		}
	}
}

func TestAnalyzeExclamationBoostsLeadingPolarity(t *testing.T) {
	plain := Analyze("we won the game")
	loud := Analyze("we won the game!!!")
	if loud.Label != Positive {
		t.Fatalf("expected positive label, got %s", loud.Label)
	}
	if loud.Score <= plain.Score {
		t.Fatalf("expected boosted score, got %f <= %f", loud.Score, plain.Score)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	first := Analyze("I love sunny days")
	second := Analyze("I love sunny days")
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestParseLabel(t *testing.T) {
	if label, ok := ParseLabel(" Positive "); !ok || label != Positive {
		t.Fatalf("expected positive, got %s ok=%v", label, ok)
	}
	if _, ok := ParseLabel("ecstatic"); ok {
		t.Fatal("expected unknown label to be rejected")
	}
}
