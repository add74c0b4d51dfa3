package main

import "testing"

func TestRunLine(t *testing.T) {
	got := runLine(3, 8, 512, 2)
	want := "Meshes: 3, Workers: 8, Size: 512px (supersample x2)"
	if got != want {
		t.Errorf("runLine = %q, want %q", got, want)
	}
}
