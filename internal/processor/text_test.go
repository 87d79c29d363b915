package processor

import "testing"

func TestLooksLikeTextRejectsNul(t *testing.T) {
	if looksLikeText([]byte("hello\x00world"), 0.99) {
		t.Fatalf("expected rejection on NUL byte")
	}
}

func TestLooksLikeTextAcceptsPlainProse(t *testing.T) {
	if !looksLikeText([]byte("The quick brown fox jumps over the lazy dog.\n"), 0.99) {
		t.Fatalf("expected plain prose to pass")
	}
}

func TestLooksLikeTextRejectsBinaryNoise(t *testing.T) {
	noisy := make([]byte, 200)
	for i := range noisy {
		noisy[i] = byte(i%5 + 1)
	}
	if looksLikeText(noisy, 0.99) {
		t.Fatalf("expected binary noise to fail the printable-ratio check")
	}
}

func TestReadPlainTextTruncates(t *testing.T) {
	raw := make([]byte, 100)
	for i := range raw {
		raw[i] = 'a'
	}
	got := readPlainText(raw, 10)
	if len(got) != 10 {
		t.Fatalf("got length %d, want 10", len(got))
	}
}

func TestReadPlainTextLatin1Fallback(t *testing.T) {
	raw := []byte{0xE9, 0xE8} // invalid UTF-8 on its own (latin-1 é, è)
	got := readPlainText(raw, 100)
	if len(got) == 0 {
		t.Fatalf("expected a non-empty fallback decode")
	}
}
