package store

import "testing"

func TestComputeDedupKeyStable(t *testing.T) {
    a := computeDedupKey([]byte(`{"event":"route.updated"}`))
    b := computeDedupKey([]byte(`{"event":"route.updated"}`))
    if a != b { t.Fatalf("same payload produced different keys: %s vs %s", a, b) }
    c := computeDedupKey([]byte(`{"event":"route.failed"}`))
    if a == c { t.Fatalf("different payloads collided: %s", a) }
    if len(a) != 64 { t.Fatalf("want hex sha256, got %d chars", len(a)) }
}

func TestNullIfEmpty(t *testing.T) {
    if v := nullIfEmpty(""); v != nil { t.Fatalf("empty string: want nil, got %v", v) }
    if v := nullIfEmpty("x"); v != "x" { t.Fatalf("want x, got %v", v) }
}
