package objproc

import "sync"

// lineKind classifies a record by its leading keyword.
type lineKind uint8

const (
	lineUnknown lineKind = iota
	lineVertex
	lineUV
	lineNormal
	lineFace
	linePolyline
	lineSmoothingGroup
	lineGroup
	lineObject
	lineMaterialLibrary
	lineUseMaterial
)

// classifyKeyword maps the first field of a line to its kind.
func classifyKeyword(word []byte) lineKind {
	switch string(word) {
	case "v":
		return lineVertex
	case "vt":
		return lineUV
	case "vn":
		return lineNormal
	case "f":
		return lineFace
	case "l":
		return linePolyline
	case "s":
		return lineSmoothingGroup
	case "g":
		return lineGroup
	case "o":
		return lineObject
	case "mtllib":
		return lineMaterialLibrary
	case "usemtl":
		return lineUseMaterial
	default:
		return lineUnknown
	}
}

// splitsOnSlash reports whether slashes delimit fields for this kind of line.
// Names and paths keep their slashes.
func (k lineKind) splitsOnSlash() bool {
	switch k {
	case lineVertex, lineUV, lineNormal, lineFace, linePolyline:
		return true
	default:
		return false
	}
}

// referenceFormat is the layout of a vertex reference group in a face or polyline.
type referenceFormat uint8

const (
	formatPosition         referenceFormat = iota // "v"
	formatPositionUV                              // "v/vt"
	formatPositionNormal                          // "v//vn"
	formatPositionUVNormal                        // "v/vt/vn"
)

// stride returns the number of fields per reference group.
func (f referenceFormat) stride() int {
	switch f {
	case formatPositionUV, formatPositionNormal:
		return 2
	case formatPositionUVNormal:
		return 3
	default:
		return 1
	}
}

func (f referenceFormat) String() string {
	switch f {
	case formatPositionUV:
		return "v/vt"
	case formatPositionNormal:
		return "v//vn"
	case formatPositionUVNormal:
		return "v/vt/vn"
	default:
		return "v"
	}
}

// field is a [start, end) span into the input buffer.
type field struct {
	start, end int
}

// record is one recognized line. Fields exclude the keyword and index into data.
type record struct {
	kind   lineKind
	line   int
	format referenceFormat
	fields []field
	data   []byte
}

// bytes returns the raw bytes of the i-th field.
func (r *record) bytes(i int) []byte {
	f := r.fields[i]
	return r.data[f.start:f.end]
}

// lineTokenizer scans a byte buffer once, left to right, yielding one record per recognized line.
type lineTokenizer struct {
	data []byte
	pos  int
	line int
	rec  record
}

// newLineTokenizer creates a tokenizer with a pre-allocated field buffer.
func newLineTokenizer(data []byte) *lineTokenizer {
	return &lineTokenizer{
		data: data,
		rec: record{
			fields: make([]field, 0, 64), // enough for a 16-corner v/vt/vn face
		},
	}
}

// reset points the tokenizer at a new buffer while keeping the field buffer.
func (t *lineTokenizer) reset(data []byte) {
	t.data = data
	t.pos = 0
	t.line = 0
	t.rec.fields = t.rec.fields[:0]
	t.rec.data = nil
}

// tokenizerPool reuses line tokenizers across parses so the field buffer survives between files.
var tokenizerPool = sync.Pool{
	New: func() any {
		return newLineTokenizer(nil)
	},
}

// next returns the next record with at least one field after the keyword. The record is
// reused by the following call. Lines of unknown kind are returned with kind lineUnknown.
func (t *lineTokenizer) next() (*record, bool) {
	for t.pos < len(t.data) {
		if rec, ok := t.scanLine(); ok {
			return rec, true
		}
	}
	return nil, false
}

// scanLine consumes one line and reports whether it produced a record.
func (t *lineTokenizer) scanLine() (*record, bool) {
	rec := &t.rec
	rec.kind = lineUnknown
	rec.format = formatPosition
	rec.fields = rec.fields[:0]
	rec.data = t.data
	t.line++
	rec.line = t.line

	data := t.data
	wordStart := -1
	haveKeyword := false
	slashDelims := false
	slashCount := 0
	formatFixed := false

	emit := func(end int) {
		if wordStart < 0 {
			return
		}
		if !haveKeyword {
			rec.kind = classifyKeyword(data[wordStart:end])
			slashDelims = rec.kind.splitsOnSlash()
			haveKeyword = true
		} else {
			rec.fields = append(rec.fields, field{start: wordStart, end: end})
		}
		wordStart = -1
	}

	i := t.pos
	for ; i < len(data); i++ {
		c := data[i]
		if c == '\n' || c == '\r' {
			break
		}

		switch {
		case c == '/' && slashDelims:
			// the first reference group decides the format of the whole record
			if !formatFixed && slashCount < 2 {
				if wordStart < 0 {
					rec.format = formatPositionNormal
				} else {
					rec.format = formatPositionUVNormal
				}
				slashCount++
			}
			emit(i)

		case c == ' ' || c == '\t':
			if !formatFixed && haveKeyword && (wordStart >= 0 || slashCount > 0) {
				// the first reference group ended
				if slashCount == 1 {
					rec.format = formatPositionUV
				}
				formatFixed = true
			}
			emit(i)

		default:
			if wordStart < 0 {
				wordStart = i
			}
		}
	}
	emit(i)
	if !formatFixed && slashCount == 1 {
		rec.format = formatPositionUV
	}

	// skip the terminator, treating "\r\n" as one
	if i < len(data) && data[i] == '\r' {
		i++
	}
	if i < len(data) && data[i] == '\n' {
		i++
	}
	t.pos = i

	return rec, haveKeyword && len(rec.fields) > 0
}
