package processor

import "testing"

func TestDecideOCREmptyEmbedded(t *testing.T) {
	d := decideOCR("short", "this is a decently long recognized ocr passage over fifty chars", 0.2)
	if !d.useOCR {
		t.Fatalf("expected OCR when embedded is effectively empty")
	}
}

func TestDecideOCRSubstantiallyLonger(t *testing.T) {
	embedded := "a bit of embedded text here that is under two hundred"
	ocr := make([]byte, 250)
	for i := range ocr {
		ocr[i] = 'x'
	}
	d := decideOCR(embedded, string(ocr), 0.1)
	if !d.useOCR {
		t.Fatalf("expected OCR when ocr text is more than double embedded and > 200 chars")
	}
}

func TestDecideOCRTrustsEmbeddedByDefault(t *testing.T) {
	d := decideOCR("a long, confidently embedded passage of ordinary prose of several hundred characters that should be trusted as-is without invoking any optical character recognition pass whatsoever because it is already long enough to be considered reliable and complete for downstream consumers who only care about the textual content of the first page of the document in question here", "short ocr", 0.3)
	if d.useOCR {
		t.Fatalf("expected embedded text to be trusted")
	}
}

func TestDecideOCRDeterministic(t *testing.T) {
	a := decideOCR("embedded text of moderate length here", "ocr output text", 0.45)
	b := decideOCR("embedded text of moderate length here", "ocr output text", 0.45)
	if a.useOCR != b.useOCR || a.reason != b.reason {
		t.Fatalf("same inputs produced different decisions: %+v vs %+v", a, b)
	}
}

func TestCombineTextKeepsBothWhenEmbeddedSubstantial(t *testing.T) {
	decision := ocrDecision{useOCR: true, reason: "ocr substantially longer"}
	embedded := make([]byte, 80)
	for i := range embedded {
		embedded[i] = 'e'
	}
	got := combineText(decision, string(embedded), "ocr text")
	if got == "ocr text" {
		t.Fatalf("expected embedded text to be appended")
	}
}

func TestCombineTextOCROnlyWhenEmbeddedWasEmpty(t *testing.T) {
	decision := ocrDecision{useOCR: true, reason: "embedded was empty"}
	got := combineText(decision, "short", "ocr text")
	if got != "ocr text" {
		t.Fatalf("expected ocr text alone, got %q", got)
	}
}
