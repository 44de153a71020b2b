package main

import "testing"

// TestBuild verifies the package compiles and the entrypoint exists.
func TestBuild(t *testing.T) {
	t.Log("pluggitctl cmd package builds successfully")
}
