package objproc

import (
	"sync"
	"testing"
)

// TestNameDecoderPassthrough verifies that UTF-8 names are returned unchanged.
func TestNameDecoderPassthrough(t *testing.T) {
	for _, label := range []string{"", "utf-8", "UTF8"} {
		d, err := NewNameDecoder(label, 10)
		if err != nil {
			t.Fatalf("Failed to create decoder for '%s': %v", label, err)
		}

		if got := d.Decode([]byte("Größe")); got != "Größe" {
			t.Errorf("Expected 'Größe', got '%s'", got)
		}
	}
}

// TestNameDecoderLegacyEncodings verifies decoding of single-byte legacy encodings.
func TestNameDecoderLegacyEncodings(t *testing.T) {
	tests := []struct {
		encoding string
		raw      []byte
		expected string
	}{
		{"windows-1252", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"ISO-8859-1", []byte{'m', 0xFC, 'n', 'z'}, "münz"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			d, err := NewNameDecoder(tt.encoding, 10)
			if err != nil {
				t.Fatalf("Failed to create decoder: %v", err)
			}

			if got := d.Decode(tt.raw); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

// TestNameDecoderUnknownEncoding verifies that unknown encodings are rejected.
func TestNameDecoderUnknownEncoding(t *testing.T) {
	if _, err := NewNameDecoder("klingon", 10); err == nil {
		t.Error("Expected error for unknown encoding, got nil")
	}
}

// TestNameDecoderEviction verifies that the least used name is evicted at capacity.
func TestNameDecoderEviction(t *testing.T) {
	d, err := NewNameDecoder("", 2)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	impl := d.(*nameDecoder)

	d.Decode([]byte("frequent"))
	d.Decode([]byte("frequent"))
	d.Decode([]byte("rare"))
	d.Decode([]byte("new"))

	if len(impl.cache) != 2 {
		t.Errorf("Expected cache size 2, got %d", len(impl.cache))
	}
	if _, ok := impl.cache["frequent"]; !ok {
		t.Error("Expected frequently used name to survive eviction")
	}
	if _, ok := impl.cache["rare"]; ok {
		t.Error("Expected rarely used name to be evicted")
	}
	if impl.accesses["frequent"] != 2 {
		t.Errorf("Expected access count 2, got %d", impl.accesses["frequent"])
	}
}

// TestNameDecoderConcurrentAccess verifies that the decoder is safe for concurrent use.
func TestNameDecoderConcurrentAccess(t *testing.T) {
	d, err := NewNameDecoder("windows-1252", 4)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	names := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for j := range 100 {
				raw := names[(i+j)%len(names)]
				if got := d.Decode(raw); got != string(raw) {
					t.Errorf("Expected '%s', got '%s'", raw, got)
				}
			}
		})
	}
	wg.Wait()
}
