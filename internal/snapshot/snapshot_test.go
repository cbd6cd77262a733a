// SPDX-License-Identifier: AGPL-3.0-or-later

package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingVisitor struct {
	events []string
	skip   map[string]bool
}

func (r *recordingVisitor) VisitEntry(n Node) VisitResult {
	r.events = append(r.events, "visit "+n.Name())
	if r.skip[n.Name()] {
		return SkipSubtree
	}
	return Continue
}

func (r *recordingVisitor) EnterDirectory(d *Directory) {
	r.events = append(r.events, "enter "+d.Name())
}

func (r *recordingVisitor) LeaveDirectory(d *Directory) {
	r.events = append(r.events, "leave "+d.Name())
}

func TestAcceptBalancedTraversal(t *testing.T) {
	tree := &Directory{
		Path:    "/root",
		DirName: "root",
		Children: []Node{
			&File{Path: "/root/a.txt", FileName: "a.txt"},
			&Directory{Path: "/root/sub", DirName: "sub", Children: []Node{
				&File{Path: "/root/sub/b.txt", FileName: "b.txt"},
			}},
		},
	}

	v := &recordingVisitor{}
	tree.Accept(v)

	want := []string{
		"visit root", "enter root",
		"visit a.txt",
		"visit sub", "enter sub", "visit b.txt", "leave sub",
		"leave root",
	}
	if len(v.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), v.events)
	}
	for i, e := range want {
		if v.events[i] != e {
			t.Fatalf("event %d: expected %q, got %q", i, e, v.events[i])
		}
	}
}

func TestAcceptSkipSubtree(t *testing.T) {
	tree := &Directory{
		Path:    "/root",
		DirName: "root",
		Children: []Node{
			&Directory{Path: "/root/skipme", DirName: "skipme", Children: []Node{
				&File{Path: "/root/skipme/c.txt", FileName: "c.txt"},
			}},
		},
	}

	v := &recordingVisitor{skip: map[string]bool{"skipme": true}}
	tree.Accept(v)

	for _, e := range v.events {
		if e == "enter skipme" || e == "visit c.txt" {
			t.Fatalf("skipped subtree was visited: %v", v.events)
		}
	}
}

func TestCaptureTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	node, err := Capture(dir)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	root, ok := node.(*Directory)
	if !ok {
		t.Fatalf("expected directory, got %T", node)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	// Children must come back name-sorted.
	if root.Children[0].Name() != "a.txt" || root.Children[1].Name() != "sub" {
		t.Fatalf("unexpected child order: %s, %s", root.Children[0].Name(), root.Children[1].Name())
	}

	again, err := Capture(dir)
	if err != nil {
		t.Fatalf("capture again: %v", err)
	}
	f1 := root.Children[0].(*File)
	f2 := again.(*Directory).Children[0].(*File)
	if f1.ContentHash != f2.ContentHash {
		t.Fatal("content hash not deterministic across captures")
	}
}

func TestCaptureMissingRoot(t *testing.T) {
	node, err := Capture(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, ok := node.(*Missing); !ok {
		t.Fatalf("expected missing node, got %T", node)
	}
}
