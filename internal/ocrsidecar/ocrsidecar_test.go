package ocrsidecar

import (
	"testing"

	"github.com/jorineg/thumbextract/internal/logging"
)

func newTestSidecar(t *testing.T, wordlist map[string]struct{}) *Sidecar {
	t.Helper()
	return &Sidecar{
		exchangeDir: t.TempDir(),
		lang:        "eng",
		wordlist:    wordlist,
		logger:      logging.NewLogger("ocr-sidecar-test"),
	}
}

func TestComputeQualityNoWordlistReturnsNeutral(t *testing.T) {
	s := newTestSidecar(t, nil)
	if q := s.computeQuality("some recognized text here"); q != 0.5 {
		t.Fatalf("got %v, want 0.5", q)
	}
}

func TestComputeQualityInsufficientEvidence(t *testing.T) {
	s := newTestSidecar(t, map[string]struct{}{"the": {}, "cat": {}})
	if q := s.computeQuality("ab cd"); q != 0.5 {
		t.Fatalf("got %v, want 0.5 for fewer than 3 checkable words", q)
	}
}

func TestComputeQualityAllRecognized(t *testing.T) {
	wordlist := map[string]struct{}{"the": {}, "cat": {}, "sat": {}, "mat": {}}
	s := newTestSidecar(t, wordlist)
	q := s.computeQuality("the cat sat on the mat")
	if q != 1.0 {
		t.Fatalf("got %v, want 1.0", q)
	}
}

func TestComputeQualityPartialRecognition(t *testing.T) {
	wordlist := map[string]struct{}{"the": {}, "cat": {}}
	s := newTestSidecar(t, wordlist)
	q := s.computeQuality("the cat xyzzy plugh wibble")
	if q <= 0 || q >= 1 {
		t.Fatalf("expected a partial score in (0,1), got %v", q)
	}
}

func TestComputeQualityIgnoresShortAndNonAlphaTokens(t *testing.T) {
	wordlist := map[string]struct{}{"cat": {}}
	s := newTestSidecar(t, wordlist)
	// "42", "a", "to" are excluded by length/alpha rules; only "cat" and
	// "dog" are checkable, fewer than three, so the neutral 0.5 applies.
	q := s.computeQuality("42 a to cat dog")
	if q != 0.5 {
		t.Fatalf("got %v, want 0.5", q)
	}
}
