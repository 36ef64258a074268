package bfs

import (
	"slices"
	"testing"
)

func TestDirNode_InsertLookup(t *testing.T) {
	root := newDirNode()
	a := &FileInfo{Path: "a"}
	b := &FileInfo{Path: "b"}
	c := &FileInfo{Path: "c"}

	root.insert("/data//cars/car.bgm", a)
	root.insert("data/cars", b)
	root.insert("top", c)

	d, fi := root.lookup("data/cars/car.bgm")
	if d != nil || fi != a {
		t.Fatalf("lookup file = %v, %v", d, fi)
	}

	d, fi = root.lookup("data/cars")
	if d == nil || fi != b {
		t.Fatalf("lookup shared name = %v, %v; want both", d, fi)
	}

	d, fi = root.lookup("data/cars/")
	if d == nil || fi != nil {
		t.Fatalf("lookup with trailing slash = %v, %v; want directory only", d, fi)
	}

	for _, name := range []string{"", "/", "//"} {
		if d, _ := root.lookup(name); d != root {
			t.Errorf("lookup(%q) is not the root", name)
		}
	}

	for _, name := range []string{"nope", "data/nope/x", "top/x"} {
		if d, fi := root.lookup(name); d != nil || fi != nil {
			t.Errorf("lookup(%q) = %v, %v; want nothing", name, d, fi)
		}
	}

	if got := root.sortedDirs(); !slices.Equal(got, []string{"data"}) {
		t.Errorf("root dirs = %v", got)
	}
	if got := root.sortedFiles(); !slices.Equal(got, []string{"top"}) {
		t.Errorf("root files = %v", got)
	}
}

func TestDirNode_LastInsertWins(t *testing.T) {
	root := newDirNode()
	first := &FileInfo{Path: "first"}
	second := &FileInfo{Path: "second"}

	if !root.insert("x/y", first) {
		t.Fatal("first insert should add a file")
	}
	if root.insert("x/y", second) {
		t.Fatal("replacing insert should not report a new file")
	}
	if root.insert("x/", first) {
		t.Fatal("insert without a file name should not report a new file")
	}

	if _, fi := root.lookup("x/y"); fi != second {
		t.Fatalf("lookup = %v, want the second insert", fi)
	}
	if got := root.dirs["x"].sortedFiles(); len(got) != 1 {
		t.Fatalf("files = %v, want one entry", got)
	}
}

func TestSplitPath(t *testing.T) {
	cases := map[string][]string{
		"":          {},
		"/":         {},
		"a":         {"a"},
		"/a//b/":    {"a", "b"},
		"a/b/c.txt": {"a", "b", "c.txt"},
	}

	for in, want := range cases {
		if got := splitPath(in); !slices.Equal(got, want) {
			t.Errorf("splitPath(%q) = %q, want %q", in, got, want)
		}
	}
}
