package warehouse

import (
	"errors"
	"testing"
)

func TestLoadErrorMergesNestedFailures(t *testing.T) {
	boom := errors.New("boom")
	e := &LoadError{}
	e.add("programs", newLoadError("programs", boom))
	e.add("hco_details", errors.New("bad"))
	if len(e.Failures) != 2 {
		t.Fatalf("expected 2 failures; got %+v", e.Failures)
	}
	if _, nested := e.Failures[0].Err.(*LoadError); nested {
		t.Fatal("expected the nested LoadError to be merged")
	}
	if !errors.Is(e, boom) {
		t.Fatal("expected the original error to be reachable")
	}
	expected := "error loading 2 table(s): programs: boom; hco_details: bad"
	if e.Error() != expected {
		t.Fatalf("expected %q; got %q", expected, e.Error())
	}
}
