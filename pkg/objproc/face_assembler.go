package objproc

import (
	"errors"
	"math"
	"strconv"
	"unsafe"
)

// quadCorners splits the reference groups 0..3 of a quad into the triangles (0,1,2) and (2,3,0).
var quadCorners = [6]int{0, 1, 2, 2, 3, 0}

// bytesToString views b as a string without copying. The input buffer is immutable for the
// whole parse, so the view is only handed to strconv and never retained.
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// parseScalar converts a numeric token, returning NaN when it is malformed.
// Out-of-range values saturate to infinity.
func parseScalar(token []byte) (float32, bool) {
	v, err := strconv.ParseFloat(bytesToString(token), 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return float32(math.NaN()), false
	}
	return float32(v), true
}

// parseReference converts a 1-based (or negative relative) reference.
func parseReference(token []byte) (int, bool) {
	v, err := strconv.Atoi(bytesToString(token))
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// pushScalars appends n scalars of the record to the pool, padding with NaN when fields are missing.
func pushScalars(pool *attributePool, r *record, n int, diag *diagnosticLog) {
	for i := range n {
		if i >= len(r.fields) {
			pool.push(float32(math.NaN()))
			diag.add(r.line, ErrMalformedNumericField, nil)
			continue
		}

		token := r.bytes(i)
		v, ok := parseScalar(token)
		if !ok {
			diag.add(r.line, ErrMalformedNumericField, token)
		}
		pool.push(v)
	}
}

// resolve maps a file-relative reference into the local tuple of pool.
// Negative references count back from the last tuple declared so far.
func resolve(pool *attributePool, offset int, token []byte, line int, diag *diagnosticLog) []float32 {
	ref, ok := parseReference(token)
	if !ok {
		diag.add(line, ErrMalformedNumericField, token)
		return nil
	}

	var local int
	if ref > 0 {
		local = ref - 1 - offset
	} else {
		local = pool.count() + ref
	}

	tuple, ok := pool.tuple(local)
	if !ok {
		diag.add(line, ErrReferenceOutOfRange, token)
		return nil
	}
	return tuple
}

// attachCorner copies the attributes of one reference group into the active bucket.
func (s *segment) attachCorner(r *record, group int, diag *diagnosticLog) {
	b := s.active
	base := group * r.format.stride()

	position := resolve(&s.positions, s.vertexOffset, r.bytes(base), r.line, diag)
	b.Positions = appendTuple(b.Positions, position, 3)

	switch r.format {
	case formatPositionUV:
		uv := resolve(&s.uvs, s.uvOffset, r.bytes(base+1), r.line, diag)
		b.UVs = appendTuple(b.UVs, uv, 2)
	case formatPositionNormal:
		normal := resolve(&s.normals, s.normalOffset, r.bytes(base+1), r.line, diag)
		b.Normals = appendTuple(b.Normals, normal, 3)
	case formatPositionUVNormal:
		uv := resolve(&s.uvs, s.uvOffset, r.bytes(base+1), r.line, diag)
		b.UVs = appendTuple(b.UVs, uv, 2)
		normal := resolve(&s.normals, s.normalOffset, r.bytes(base+2), r.line, diag)
		b.Normals = appendTuple(b.Normals, normal, 3)
	}
}

// buildFace triangulates a face record into the active bucket. Triangles are copied as is,
// quads are split, larger polygons are truncated to their first three corners.
func (s *segment) buildFace(r *record, diag *diagnosticLog) {
	s.reachedFaces = true
	corners := len(r.fields) / r.format.stride()

	switch {
	case corners < 3:
		diag.add(r.line, ErrUnsupportedPolygon, nil)

	case corners == 4:
		for _, corner := range quadCorners {
			s.attachCorner(r, corner, diag)
		}

	default:
		if corners > 4 {
			diag.add(r.line, ErrUnsupportedPolygon, nil)
		}
		for corner := range 3 {
			s.attachCorner(r, corner, diag)
		}
	}
}

// buildPolyline resolves every reference of a polyline record into the line arrays of the
// active bucket. Normals in the record are ignored.
func (s *segment) buildPolyline(r *record, diag *diagnosticLog) {
	s.reachedFaces = true
	b := s.active
	stride := r.format.stride()
	withUV := r.format == formatPositionUV || r.format == formatPositionUVNormal

	for base := 0; base+stride <= len(r.fields); base += stride {
		position := resolve(&s.positions, s.vertexOffset, r.bytes(base), r.line, diag)
		b.LinePositions = appendTuple(b.LinePositions, position, 3)

		if withUV {
			uv := resolve(&s.uvs, s.uvOffset, r.bytes(base+1), r.line, diag)
			b.LineUVs = appendTuple(b.LineUVs, uv, 2)
		}
	}
}
