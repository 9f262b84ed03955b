package objproc

import "gonum.org/v1/gonum/spatial/r3"

// GroupKey identifies the bucket that receives face data.
type GroupKey struct {
	// ObjectName is the active object name, empty until an object is declared
	ObjectName string

	// GroupName is the active group name
	GroupName string

	// MaterialName is the active material name
	MaterialName string

	// SmoothingGroup is the literal smoothing group when splitting per smoothing group,
	// otherwise 0 (flat) or 1 (smooth)
	SmoothingGroup int
}

// GroupBucket holds the renumbered output arrays of one sub-mesh.
type GroupBucket struct {
	// ObjectName is the object the bucket belongs to (inherits the group name when no object was declared).
	ObjectName string `json:"objectName"`

	// GroupName is the group the bucket belongs to.
	GroupName string `json:"groupName"`

	// MaterialName is the material used by every face in the bucket.
	MaterialName string `json:"materialName"`

	// SmoothingGroup is the smoothing group that was active when the bucket was created; 0 means flat.
	SmoothingGroup int `json:"smoothingGroup"`

	// Positions holds triangle corner positions, stride 3.
	Positions []float32 `json:"positions,omitempty"`

	// UVs holds triangle corner texture coordinates, stride 2.
	UVs []float32 `json:"uvs,omitempty"`

	// Normals holds triangle corner normals, stride 3.
	Normals []float32 `json:"normals,omitempty"`

	// LinePositions holds polyline vertex positions, stride 3.
	LinePositions []float32 `json:"linePositions,omitempty"`

	// LineUVs holds polyline vertex texture coordinates, stride 2.
	LineUVs []float32 `json:"lineUvs,omitempty"`
}

// Flat reports whether the bucket was recorded without smoothing.
func (b *GroupBucket) Flat() bool {
	return b.SmoothingGroup == 0
}

// empty reports whether the bucket never received geometry.
func (b *GroupBucket) empty() bool {
	return len(b.Positions) == 0 && len(b.LinePositions) == 0
}

// SegmentReport summarizes one segment of the input for diagnostics.
type SegmentReport struct {
	// Name is the object name of the segment, "groups" when none was declared.
	Name string `json:"name"`

	// MaterialLibrary is the last material library declared in the segment.
	MaterialLibrary string `json:"materialLibrary,omitempty"`

	// VertexCount is the number of positions declared in the segment.
	VertexCount int `json:"vertexCount"`

	// NormalCount is the number of normals declared in the segment.
	NormalCount int `json:"normalCount"`

	// UVCount is the number of texture coordinates declared in the segment.
	UVCount int `json:"uvCount"`

	// GroupCount is the number of group changes.
	GroupCount int `json:"groupCount"`

	// MaterialCount is the number of material changes.
	MaterialCount int `json:"materialCount"`

	// SmoothingGroupCount is the number of smoothing group changes.
	SmoothingGroupCount int `json:"smoothingGroupCount"`

	// BucketCount is the number of buckets that survived finalization.
	BucketCount int `json:"bucketCount"`
}

// CompletedObject is a finalized segment handed to the mesh builder.
type CompletedObject struct {
	// Sequence is the 1-based number of this object within the file.
	Sequence int `json:"sequence"`

	// Buckets are the non-empty buckets in creation order.
	Buckets []*GroupBucket `json:"buckets"`

	// AbsoluteVertexCount is the sum of all bucket position array lengths (scalars).
	AbsoluteVertexCount int `json:"absoluteVertexCount"`

	// AbsoluteNormalCount is the sum of all bucket normal array lengths (scalars).
	AbsoluteNormalCount int `json:"absoluteNormalCount"`

	// AbsoluteUVCount is the sum of all bucket uv array lengths (scalars).
	AbsoluteUVCount int `json:"absoluteUvCount"`

	// AbsoluteLineVertexCount is the sum of all bucket line position array lengths (scalars).
	AbsoluteLineVertexCount int `json:"absoluteLineVertexCount"`

	// Report describes the segment the object was built from.
	Report SegmentReport `json:"report"`
}

// Diagnostic describes a recoverable anomaly found while parsing.
type Diagnostic struct {
	// Line is the 1-based line number.
	Line int `json:"line"`

	// Kind is the error text of Err.
	Kind string `json:"kind"`

	// Token is the offending token, if any.
	Token string `json:"token,omitempty"`

	// Err is one of the sentinel errors of this package.
	Err error `json:"-"`
}

// ParseReport contains the running totals of one parse.
type ParseReport struct {
	// Objects is the number of completed objects emitted.
	Objects int `json:"objects"`

	// Lines is the number of lines read.
	Lines int `json:"lines"`

	// TotalVertexCount is the number of position scalars emitted across the file.
	TotalVertexCount int `json:"totalVertexCount"`

	// TotalNormalCount is the number of normal scalars emitted across the file.
	TotalNormalCount int `json:"totalNormalCount"`

	// TotalUVCount is the number of uv scalars emitted across the file.
	TotalUVCount int `json:"totalUvCount"`

	// MaterialLibraries lists every material library declared, in order of appearance.
	MaterialLibraries []string `json:"materialLibraries,omitempty"`

	// MalformedFields counts tokens that failed numeric conversion or referenced missing attributes.
	MalformedFields int `json:"malformedFields"`

	// UnsupportedPolygons counts faces that were truncated or skipped.
	UnsupportedPolygons int `json:"unsupportedPolygons"`

	// Diagnostics holds the first anomalies found, up to the configured maximum.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// DroppedDiagnostics counts anomalies beyond the configured maximum.
	DroppedDiagnostics int `json:"droppedDiagnostics,omitempty"`
}

// ParseOptions configures a parser.
type ParseOptions struct {
	// PerSmoothingGroup creates one bucket per literal smoothing group instead of flat/smooth.
	PerSmoothingGroup bool

	// MaxDiagnostics caps the diagnostics kept on the report, 0 keeps none.
	MaxDiagnostics int

	// Names decodes object, group and material names; nil means UTF-8.
	Names NameDecoder
}

// MaterialDescription describes a material referenced by a mesh.
type MaterialDescription struct {
	// Name is the material name as declared in the file.
	Name string `json:"name"`

	// Flat is true when the material is used without smoothing.
	Flat bool `json:"flat"`

	// Default is true when the material is not part of the known material set.
	Default bool `json:"default"`
}

// MaterialGroup assigns a vertex range of a multi-material mesh to a material.
type MaterialGroup struct {
	// Start is the first vertex of the range.
	Start int `json:"start"`

	// Count is the number of vertices in the range.
	Count int `json:"count"`

	// MaterialIndex indexes Mesh.Materials.
	MaterialIndex int `json:"materialIndex"`
}

// Mesh is the output of the mesh creator.
type Mesh struct {
	// Name is the group name, or the object name when the group name is empty.
	Name string `json:"name"`

	// Sequence is the completed object this mesh was built from.
	Sequence int `json:"sequence"`

	// MultiMaterial is true when Groups assign ranges to several materials.
	MultiMaterial bool `json:"multiMaterial"`

	// Materials used by the mesh.
	Materials []MaterialDescription `json:"materials"`

	// Groups is set for multi-material meshes only.
	Groups []MaterialGroup `json:"groups,omitempty"`

	// Bounds is the axis-aligned bounding box of Positions and LinePositions.
	Bounds r3.Box `json:"bounds"`

	// Positions, stride 3.
	Positions []float32 `json:"positions,omitempty"`

	// Normals, stride 3.
	Normals []float32 `json:"normals,omitempty"`

	// UVs, stride 2.
	UVs []float32 `json:"uvs,omitempty"`

	// LinePositions, stride 3.
	LinePositions []float32 `json:"linePositions,omitempty"`

	// LineUVs, stride 2.
	LineUVs []float32 `json:"lineUvs,omitempty"`
}

// VertexCount returns the number of triangle corners in the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}
