package tagscan

import (
	"reflect"
	"testing"
)

func TestRemoveBlocks_Balanced(t *testing.T) {
	got := RemoveBlocks("A<x>B</x>C", "x")
	if got != "AC" {
		t.Errorf("RemoveBlocks = %q, want %q", got, "AC")
	}
}

func TestRemoveBlocks_Nested(t *testing.T) {
	got := RemoveBlocks("<a>outer<a>inner</a>tail</a>", "a")
	if got != "" {
		t.Errorf("RemoveBlocks = %q, want empty (whole nested structure removed in one unit)", got)
	}
}

func TestRemoveBlocks_Cases(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		tag  string
		want string
	}{
		{"case insensitive", "x<MOOD>grumpy</Mood>y", "mood", "xy"},
		{"attributes skipped", `a<mood level="9">m</mood>b`, "mood", "ab"},
		{"whitespace after bracket", "a< mood >m</ mood >b", "mood", "ab"},
		{"unclosed removes to end", "keep<mood>rest of doc", "mood", "keep"},
		{"multiple blocks", "a<x>1</x>b<x>2</x>c", "x", "abc"},
		{"absent tag untouched", "a<x>1</x>b", "y", "a<x>1</x>b"},
		{"name with spaces", "a<Miku and Nana>duo</Miku and Nana>b", "Miku and Nana", "ab"},
		{"no partial name match", "a<moody>m</moody>b", "mood", "a<moody>m</moody>b"},
		{"empty name matches nothing", "a<x>1</x>b", "", "a<x>1</x>b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveBlocks(tt.doc, tt.tag); got != tt.want {
				t.Errorf("RemoveBlocks(%q, %q) = %q, want %q", tt.doc, tt.tag, got, tt.want)
			}
		})
	}
}

func TestExtract_Nested(t *testing.T) {
	doc := "<a>outer<a>inner</a>tail</a>"
	start, end, ok := FindOpen(doc, "a", 0)
	if !ok || start != 0 {
		t.Fatalf("FindOpen = (%d, %d, %v), want opening tag at 0", start, end, ok)
	}
	inner, blockEnd := Extract(doc, "a", end)
	if inner != "outer<a>inner</a>tail" {
		t.Errorf("inner = %q, want %q", inner, "outer<a>inner</a>tail")
	}
	if blockEnd != len(doc) {
		t.Errorf("blockEnd = %d, want %d", blockEnd, len(doc))
	}
}

func TestExtract_Unclosed(t *testing.T) {
	doc := "<a>foo"
	_, end, ok := FindOpen(doc, "a", 0)
	if !ok {
		t.Fatal("FindOpen found nothing")
	}
	inner, blockEnd := Extract(doc, "a", end)
	if inner != "foo" {
		t.Errorf("inner = %q, want %q", inner, "foo")
	}
	if blockEnd != len(doc) {
		t.Errorf("blockEnd = %d, want document end %d", blockEnd, len(doc))
	}
}

func TestFindBlockEnd_Unclosed(t *testing.T) {
	doc := "<a>foo"
	contentEnd, blockEnd := FindBlockEnd(doc, "a", 3)
	if contentEnd != len(doc) || blockEnd != len(doc) {
		t.Errorf("FindBlockEnd = (%d, %d), want (%d, %d)", contentEnd, blockEnd, len(doc), len(doc))
	}
}

func TestLocate_SkipsDecoys(t *testing.T) {
	doc := "<system>S</system><scenario>Sc</scenario><Luna>hi</Luna>"
	skip := map[string]bool{"system": true, "scenario": true}
	name, start, end, ok := Locate(doc, skip)
	if !ok {
		t.Fatal("Locate found nothing")
	}
	if name != "Luna" {
		t.Errorf("name = %q, want %q", name, "Luna")
	}
	if doc[start:end] != "<Luna>" {
		t.Errorf("span = %q, want %q", doc[start:end], "<Luna>")
	}
}

func TestLocate_NoneFound(t *testing.T) {
	doc := "<system>S</system>only decoys here"
	if _, _, _, ok := Locate(doc, map[string]bool{"system": true}); ok {
		t.Error("Locate matched a skipped tag")
	}
}

func TestLocate_IgnoresClosingMarkers(t *testing.T) {
	doc := "</stray><Luna>hi</Luna>"
	name, _, _, ok := Locate(doc, nil)
	if !ok || name != "Luna" {
		t.Errorf("Locate = (%q, %v), want Luna", name, ok)
	}
}

func TestPresentNames(t *testing.T) {
	doc := `intro <Luna>x<mood>y</mood></Luna> <Scenario near="here">z</Scenario> <mood>again</mood>`
	got := PresentNames(doc)
	want := []string{"luna", "mood", "scenario"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PresentNames = %v, want %v", got, want)
	}
}

func TestExtractAll_ResumeSemantics(t *testing.T) {
	doc := "<a>outer<a>inner</a>tail</a><a>second</a>"

	afterOpen := ExtractAll(doc, "a", false)
	wantOpen := []string{"outer<a>inner</a>tail", "inner", "second"}
	if !reflect.DeepEqual(afterOpen, wantOpen) {
		t.Errorf("resume after open = %v, want %v", afterOpen, wantOpen)
	}

	afterBlock := ExtractAll(doc, "a", true)
	wantBlock := []string{"outer<a>inner</a>tail", "second"}
	if !reflect.DeepEqual(afterBlock, wantBlock) {
		t.Errorf("resume after block = %v, want %v", afterBlock, wantBlock)
	}
}

func TestStripMarkers(t *testing.T) {
	doc := "a<mood>kept</mood>b<mood>tail"
	got := StripMarkers(doc, "mood")
	if got != "akeptbtail" {
		t.Errorf("StripMarkers = %q, want %q", got, "akeptbtail")
	}
}

func TestStripGenericMarkers(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{"a<foo>b</foo>c", "abc"},
		{"orphan </closer> left", "orphan  left"},
		{`<tag attr="v">x`, "x"},
		{"no markers", "no markers"},
		{"a < b and c > d", "a  d"}, // bare comparison text reads as one marker
	}
	for _, tt := range tests {
		if got := StripGenericMarkers(tt.doc); got != tt.want {
			t.Errorf("StripGenericMarkers(%q) = %q, want %q", tt.doc, got, tt.want)
		}
	}
}

func TestFindOpen_FromOffset(t *testing.T) {
	doc := "<x>1</x><x>2</x>"
	start, _, ok := FindOpen(doc, "x", 1)
	if !ok || start != 8 {
		t.Errorf("FindOpen from 1 = (%d, %v), want start 8", start, ok)
	}
}
