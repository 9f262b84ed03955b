package objproc

import (
	"testing"
)

// collectRecords tokenizes input and copies the kind, format and field text of every record.
func collectRecords(input string) []testRecord {
	tok := newLineTokenizer([]byte(input))
	var out []testRecord
	for {
		rec, ok := tok.next()
		if !ok {
			return out
		}
		tr := testRecord{kind: rec.kind, line: rec.line, format: rec.format}
		for i := range rec.fields {
			tr.fields = append(tr.fields, string(rec.bytes(i)))
		}
		out = append(out, tr)
	}
}

type testRecord struct {
	kind   lineKind
	line   int
	format referenceFormat
	fields []string
}

// TestClassifyKeyword verifies that every supported keyword maps to its line kind.
func TestClassifyKeyword(t *testing.T) {
	tests := map[string]lineKind{
		"v":      lineVertex,
		"vt":     lineUV,
		"vn":     lineNormal,
		"f":      lineFace,
		"l":      linePolyline,
		"s":      lineSmoothingGroup,
		"g":      lineGroup,
		"o":      lineObject,
		"mtllib": lineMaterialLibrary,
		"usemtl": lineUseMaterial,
		"#":      lineUnknown,
		"vp":     lineUnknown,
		"V":      lineUnknown,
	}

	for word, expected := range tests {
		if got := classifyKeyword([]byte(word)); got != expected {
			t.Errorf("Expected kind %d for '%s', got %d", expected, word, got)
		}
	}
}

// TestTokenizerFaceFormats verifies that the reference format is inferred from the slashes of a face.
func TestTokenizerFaceFormats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		format   referenceFormat
		expected []string
	}{
		{"position", "f 1 2 3", formatPosition, []string{"1", "2", "3"}},
		{"position uv", "f 1/4 2/5 3/6", formatPositionUV, []string{"1", "4", "2", "5", "3", "6"}},
		{"position normal", "f 1//7 2//8 3//9", formatPositionNormal, []string{"1", "7", "2", "8", "3", "9"}},
		{"position uv normal", "f 1/4/7 2/5/8 3/6/9", formatPositionUVNormal, []string{"1", "4", "7", "2", "5", "8", "3", "6", "9"}},
		{"single position uv", "f 1/4", formatPositionUV, []string{"1", "4"}},
		{"first group without slashes", "f 1 2/1 3/1", formatPosition, []string{"1", "2", "1", "3", "1"}},
		{"first group decides", "f 1/4 2/5/8 3//9", formatPositionUV, []string{"1", "4", "2", "5", "8", "3", "9"}},
		{"leading whitespace", "f  1//7\t2//8 3//9", formatPositionNormal, []string{"1", "7", "2", "8", "3", "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := collectRecords(tt.input)
			if len(records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(records))
			}

			rec := records[0]
			if rec.kind != lineFace {
				t.Errorf("Expected face record, got kind %d", rec.kind)
			}
			if rec.format != tt.format {
				t.Errorf("Expected format %s, got %s", tt.format, rec.format)
			}
			if len(rec.fields) != len(tt.expected) {
				t.Fatalf("Expected %d fields, got %d: %v", len(tt.expected), len(rec.fields), rec.fields)
			}
			for i, want := range tt.expected {
				if rec.fields[i] != want {
					t.Errorf("Expected field %d to be '%s', got '%s'", i, want, rec.fields[i])
				}
			}
		})
	}
}

// TestTokenizerLineTerminators verifies LF, CRLF, CR and a missing final terminator.
func TestTokenizerLineTerminators(t *testing.T) {
	input := "v 1 2 3\r\nv 4 5 6\nv 7 8 9\rf 1 2 3"

	records := collectRecords(input)
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	for i, rec := range records {
		if rec.line != i+1 {
			t.Errorf("Expected record %d on line %d, got %d", i, i+1, rec.line)
		}
	}

	if records[3].kind != lineFace {
		t.Errorf("Expected the unterminated last line to be a face, got kind %d", records[3].kind)
	}
	if records[1].fields[2] != "6" {
		t.Errorf("Expected '6', got '%s'", records[1].fields[2])
	}
}

// TestTokenizerSkipsEmptyRecords verifies that blank lines and keywords without values produce no record.
func TestTokenizerSkipsEmptyRecords(t *testing.T) {
	input := "\n\n   \ng\nusemtl\nv 1 2 3\n"

	records := collectRecords(input)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].kind != lineVertex {
		t.Errorf("Expected vertex record, got kind %d", records[0].kind)
	}
	if records[0].line != 6 {
		t.Errorf("Expected line 6, got %d", records[0].line)
	}
}

// TestTokenizerWhitespace verifies that tabs and repeated spaces delimit fields.
func TestTokenizerWhitespace(t *testing.T) {
	records := collectRecords("v\t1.5  -2\t\t3e2  ")
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	expected := []string{"1.5", "-2", "3e2"}
	if len(records[0].fields) != len(expected) {
		t.Fatalf("Expected %d fields, got %v", len(expected), records[0].fields)
	}
	for i, want := range expected {
		if records[0].fields[i] != want {
			t.Errorf("Expected '%s', got '%s'", want, records[0].fields[i])
		}
	}
}

// TestTokenizerNamesKeepSlashes verifies that names and paths are not split on slashes.
func TestTokenizerNamesKeepSlashes(t *testing.T) {
	records := collectRecords("mtllib textures/scene.mtl\no parts/wheel\nusemtl metal/steel")
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	expected := []string{"textures/scene.mtl", "parts/wheel", "metal/steel"}
	for i, want := range expected {
		if len(records[i].fields) != 1 || records[i].fields[0] != want {
			t.Errorf("Expected single field '%s', got %v", want, records[i].fields)
		}
	}
}

// TestTokenizerUnknownLines verifies that unknown lines are returned as unknown records.
func TestTokenizerUnknownLines(t *testing.T) {
	records := collectRecords("# exported\nvp 0.5 0.5\nv 1 2 3")
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].kind != lineUnknown || records[1].kind != lineUnknown {
		t.Errorf("Expected unknown records, got %d and %d", records[0].kind, records[1].kind)
	}
}

// TestTokenizerReset verifies that a pooled tokenizer can be pointed at a new buffer.
func TestTokenizerReset(t *testing.T) {
	tok := tokenizerPool.Get().(*lineTokenizer)
	defer tokenizerPool.Put(tok)

	tok.reset([]byte("v 1 2 3\nv 4 5 6"))
	for {
		if _, ok := tok.next(); !ok {
			break
		}
	}
	if tok.line != 2 {
		t.Errorf("Expected 2 lines, got %d", tok.line)
	}

	tok.reset([]byte("f 1 2 3"))
	rec, ok := tok.next()
	if !ok {
		t.Fatal("Expected a record after reset")
	}
	if rec.line != 1 || rec.kind != lineFace {
		t.Errorf("Expected face on line 1, got kind %d on line %d", rec.kind, rec.line)
	}
}

// TestReferenceFormatStride verifies the field count of every reference format.
func TestReferenceFormatStride(t *testing.T) {
	tests := map[referenceFormat]int{
		formatPosition:         1,
		formatPositionUV:       2,
		formatPositionNormal:   2,
		formatPositionUVNormal: 3,
	}

	for format, expected := range tests {
		if got := format.stride(); got != expected {
			t.Errorf("Expected stride %d for %s, got %d", expected, format, got)
		}
	}
}
