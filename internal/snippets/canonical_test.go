package snippets

import "testing"

func TestCanonicalTextFormat(t *testing.T) {
	text := CanonicalText("Quick sort", "python", "Partition based sort", []string{"sort", "algorithms"}, "def qs(a): ...")
	expected := "Title: Quick sort\nLanguage: python\nDescription: Partition based sort\nTags: sort, algorithms\nCode:\ndef qs(a): ..."
	if text != expected {
		t.Fatalf("unexpected canonical text:\n%s", text)
	}
}

func TestCanonicalTextEmptyOptionalFields(t *testing.T) {
	text := CanonicalText("Fib", "python", "", nil, "def fib(n): ...")
	expected := "Title: Fib\nLanguage: python\nDescription: \nTags: \nCode:\ndef fib(n): ..."
	if text != expected {
		t.Fatalf("unexpected canonical text:\n%s", text)
	}
}

func TestCanonicalTextIsDeterministic(t *testing.T) {
	first := CanonicalText("Fib", "python", "memoized", []string{"math", "recursion"}, "def fib(n): ...")
	for i := 0; i < 10; i++ {
		again := CanonicalText("Fib", "python", "memoized", []string{"math", "recursion"}, "def fib(n): ...")
		if again != first {
			t.Fatalf("canonical text changed between calls")
		}
	}
}
