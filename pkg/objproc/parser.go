package objproc

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// cancelCheckInterval is the number of lines between context checks.
const cancelCheckInterval = 1024

// Parser defines the interface for parsing geometry buffers.
type Parser interface {
	// Parse consumes data in one forward pass, handing every completed object to the mesh builder.
	Parse(ctx context.Context, data []byte) (*ParseReport, error)
}

type parserImpl struct {
	// builder receives every completed object
	builder MeshBuilder

	// options controls grouping and diagnostics
	options ParseOptions
}

// NewParser creates a new Parser that emits completed objects to builder.
func NewParser(builder MeshBuilder, options ParseOptions) Parser {
	if options.Names == nil {
		options.Names = defaultNames
	}
	if options.MaxDiagnostics < 0 {
		options.MaxDiagnostics = 0
	}

	return &parserImpl{
		builder: builder,
		options: options,
	}
}

// Parse drives the tokenizer over the whole buffer, then flushes the last open segment.
func (p *parserImpl) Parse(ctx context.Context, data []byte) (*ParseReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tok := tokenizerPool.Get().(*lineTokenizer)
	defer tokenizerPool.Put(tok)
	tok.reset(data)
	defer tok.reset(nil)

	s := &session{
		builder: p.builder,
		names:   p.options.Names,
		segment: newSegment(p.options.PerSmoothingGroup),
		report:  &ParseReport{},
	}
	s.diag = diagnosticLog{report: s.report, max: p.options.MaxDiagnostics}
	defer func() {
		// the active segment is nil only after a successful final flush
		if s.segment != nil {
			s.segment.release()
		}
	}()

	lastCheck := 0
	for {
		rec, ok := tok.next()
		if !ok {
			break
		}

		// check context cancellation periodically for responsiveness
		if rec.line-lastCheck >= cancelCheckInterval {
			lastCheck = rec.line
			select {
			case <-ctx.Done():
				return s.report, ctx.Err()
			default:
			}
		}

		if err := s.consume(rec); err != nil {
			return s.report, err
		}
	}
	s.report.Lines = tok.line

	// do not forget the last object
	err := s.finalizeSegment()
	s.segment.release()
	s.segment = nil
	if err != nil {
		return s.report, err
	}

	if s.report.MalformedFields > 0 || s.report.UnsupportedPolygons > 0 {
		log.Warn().
			Int("malformed_fields", s.report.MalformedFields).
			Int("unsupported_polygons", s.report.UnsupportedPolygons).
			Int("lines", s.report.Lines).
			Msg("parsed with recoverable anomalies")
	}

	return s.report, nil
}

// session holds the state of one parse call.
type session struct {
	builder MeshBuilder
	names   NameDecoder
	segment *segment
	report  *ParseReport
	diag    diagnosticLog

	// completed objects so far
	objectCount int
}

// consume applies one record to the active segment.
func (s *session) consume(r *record) error {
	seg := s.segment

	switch r.kind {
	case lineVertex:
		// positions after faces start a new object without an explicit declaration
		if seg.reachedFaces {
			if err := s.replaceSegment(true); err != nil {
				return err
			}
			seg = s.segment
		}
		pushScalars(&seg.positions, r, 3, &s.diag)

	case lineUV:
		pushScalars(&seg.uvs, r, 2, &s.diag)

	case lineNormal:
		pushScalars(&seg.normals, r, 3, &s.diag)

	case lineFace:
		seg.buildFace(r, &s.diag)

	case linePolyline:
		seg.buildPolyline(r, &s.diag)

	case lineSmoothingGroup:
		seg.setSmoothingGroup(s.smoothingGroup(r))

	case lineGroup:
		seg.setGroup(s.names.Decode(r.bytes(0)))

	case lineObject:
		if seg.positions.cursor() > 0 {
			if err := s.replaceSegment(false); err != nil {
				return err
			}
			seg = s.segment
		}
		seg.setObject(s.names.Decode(r.bytes(0)))

	case lineMaterialLibrary:
		for i := range r.fields {
			name := s.names.Decode(r.bytes(i))
			seg.mtllib = name
			s.report.MaterialLibraries = append(s.report.MaterialLibraries, name)
		}

	case lineUseMaterial:
		seg.setMaterial(s.names.Decode(r.bytes(0)))
	}

	return nil
}

// smoothingGroup normalizes the value of an "s" record; "off" means 0.
func (s *session) smoothingGroup(r *record) int {
	token := r.bytes(0)
	if string(token) == "off" {
		return 0
	}

	value, err := strconv.Atoi(bytesToString(token))
	if err != nil {
		s.diag.add(r.line, ErrMalformedNumericField, token)
		return 0
	}
	return value
}

// replaceSegment finalizes the active segment and opens its successor.
func (s *session) replaceSegment(implicit bool) error {
	next := s.segment.successor(implicit)
	err := s.finalizeSegment()
	s.segment.release()
	s.segment = next
	return err
}

// finalizeSegment emits the surviving buckets of the active segment to the mesh builder.
// Segments without surviving buckets are not emitted and do not consume a sequence number.
func (s *session) finalizeSegment() error {
	object := s.segment.finalize(s.objectCount + 1)

	log.Debug().
		Int("sequence", object.Sequence).
		Str("name", object.Report.Name).
		Str("mtllib", object.Report.MaterialLibrary).
		Int("vertices", object.Report.VertexCount).
		Int("normals", object.Report.NormalCount).
		Int("uvs", object.Report.UVCount).
		Int("groups", object.Report.GroupCount).
		Int("smoothing_groups", object.Report.SmoothingGroupCount).
		Int("materials", object.Report.MaterialCount).
		Int("buckets", object.Report.BucketCount).
		Msg("segment completed")

	if len(object.Buckets) == 0 {
		return nil
	}

	s.objectCount++
	s.report.Objects = s.objectCount
	s.report.TotalVertexCount += object.AbsoluteVertexCount
	s.report.TotalNormalCount += object.AbsoluteNormalCount
	s.report.TotalUVCount += object.AbsoluteUVCount

	if s.builder == nil {
		return nil
	}
	if err := s.builder.BuildMesh(object); err != nil {
		return fmt.Errorf("failed to build mesh for object %d (%s): %w", object.Sequence, object.Report.Name, err)
	}
	return nil
}

// diagnosticLog records recoverable anomalies on the report.
type diagnosticLog struct {
	report *ParseReport
	max    int
}

// add counts the anomaly and keeps it while below the configured maximum.
func (d *diagnosticLog) add(line int, err error, token []byte) {
	switch {
	case errors.Is(err, ErrMalformedNumericField), errors.Is(err, ErrReferenceOutOfRange):
		d.report.MalformedFields++
	case errors.Is(err, ErrUnsupportedPolygon):
		d.report.UnsupportedPolygons++
	}

	if len(d.report.Diagnostics) >= d.max {
		d.report.DroppedDiagnostics++
		return
	}

	d.report.Diagnostics = append(d.report.Diagnostics, Diagnostic{
		Line:  line,
		Kind:  err.Error(),
		Token: string(token),
		Err:   err,
	})
}
