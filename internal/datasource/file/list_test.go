package file

import (
	"reflect"
	"testing"
)

func TestReadList(t *testing.T) {
	t.Parallel()

	content := `
# inputs for the nightly run
data/eu_life_expectancy_raw.tsv
   # indented comment
https://example.org/estat_demo_mlexpec.tsv

   data/eu_life_expectancy_expected.json
`
	got, err := ReadList(writeFixture(t, "sources.txt", content))
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	want := []string{
		"data/eu_life_expectancy_raw.tsv",
		"https://example.org/estat_demo_mlexpec.tsv",
		"data/eu_life_expectancy_expected.json",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList = %#v, want %#v", got, want)
	}
}

func TestReadList_EmptyFile(t *testing.T) {
	t.Parallel()

	got, err := ReadList(writeFixture(t, "sources.txt", ""))
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %#v", got)
	}
}

func TestReadList_FileNotFound(t *testing.T) {
	t.Parallel()

	if _, err := ReadList("does-not-exist-12345.txt"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
