package objproc

const defaultName = "none"

// segment is one generation of file-local attribute pools plus the buckets fed from them.
// A file-relative 1-based reference r resolves to local index r-1-offset.
type segment struct {
	perSmoothingGroup bool

	positions attributePool
	uvs       attributePool
	normals   attributePool

	// tuples contributed by all earlier segments
	vertexOffset int
	uvOffset     int
	normalOffset int

	objectName     string
	groupName      string
	materialName   string
	smoothingGroup int
	mtllib         string

	groupCount          int
	materialCount       int
	smoothingGroupCount int

	// buckets in creation order; index maps a key to its position in buckets
	buckets []*GroupBucket
	index   map[GroupKey]int
	active  *GroupBucket

	// set once a face or polyline was recorded
	reachedFaces bool
}

// newSegment creates the first segment of a file.
func newSegment(perSmoothingGroup bool) *segment {
	s := &segment{
		perSmoothingGroup: perSmoothingGroup,
		positions:         newAttributePool(3),
		uvs:               newAttributePool(2),
		normals:           newAttributePool(3),
		groupName:         defaultName,
		materialName:      defaultName,
		index:             make(map[GroupKey]int),
	}
	s.selectBucket()
	return s
}

// successor creates the segment that follows s. Offsets carry forward the tuples s contributed.
// An implicit boundary (positions after faces) keeps the active group of s.
func (s *segment) successor(implicit bool) *segment {
	next := &segment{
		perSmoothingGroup: s.perSmoothingGroup,
		positions:         newAttributePool(3),
		uvs:               newAttributePool(2),
		normals:           newAttributePool(3),
		vertexOffset:      s.vertexOffset + s.positions.count(),
		uvOffset:          s.uvOffset + s.uvs.count(),
		normalOffset:      s.normalOffset + s.normals.count(),
		groupName:         defaultName,
		materialName:      defaultName,
		index:             make(map[GroupKey]int),
	}
	if implicit {
		next.groupName = s.groupName
	}
	next.selectBucket()
	return next
}

// key builds the grouping key of the active identity.
func (s *segment) key() GroupKey {
	smoothing := s.smoothingGroup
	if !s.perSmoothingGroup && smoothing != 0 {
		smoothing = 1
	}
	return GroupKey{
		ObjectName:     s.objectName,
		GroupName:      s.groupName,
		MaterialName:   s.materialName,
		SmoothingGroup: smoothing,
	}
}

// selectBucket makes the bucket of the active key current, creating it on first use.
func (s *segment) selectBucket() {
	key := s.key()
	if i, ok := s.index[key]; ok {
		s.active = s.buckets[i]
		return
	}

	bucket := &GroupBucket{
		ObjectName:     s.objectName,
		GroupName:      s.groupName,
		MaterialName:   s.materialName,
		SmoothingGroup: s.smoothingGroup,
	}
	s.index[key] = len(s.buckets)
	s.buckets = append(s.buckets, bucket)
	s.active = bucket
}

func (s *segment) setObject(name string) {
	if s.objectName == name {
		return
	}
	s.objectName = name
	s.selectBucket()
}

func (s *segment) setGroup(name string) {
	if s.groupName == name {
		return
	}
	s.groupName = name
	s.groupCount++
	s.selectBucket()
}

func (s *segment) setMaterial(name string) {
	if s.materialName == name {
		return
	}
	s.materialName = name
	s.materialCount++
	s.selectBucket()
}

func (s *segment) setSmoothingGroup(value int) {
	if s.smoothingGroup == value {
		return
	}
	s.smoothingGroup = value
	s.smoothingGroupCount++
	s.selectBucket()
}

// finalize prunes empty buckets and moves the survivors into a completed object.
// The segment must not be used afterwards.
func (s *segment) finalize(sequence int) *CompletedObject {
	object := &CompletedObject{
		Sequence: sequence,
		Buckets:  make([]*GroupBucket, 0, len(s.buckets)),
	}

	for _, bucket := range s.buckets {
		if bucket.empty() {
			continue
		}
		if bucket.ObjectName == "" {
			bucket.ObjectName = bucket.GroupName
		}

		object.Buckets = append(object.Buckets, bucket)
		object.AbsoluteVertexCount += len(bucket.Positions)
		object.AbsoluteNormalCount += len(bucket.Normals)
		object.AbsoluteUVCount += len(bucket.UVs)
		object.AbsoluteLineVertexCount += len(bucket.LinePositions)
	}

	name := s.objectName
	if name == "" {
		name = "groups"
	}
	object.Report = SegmentReport{
		Name:                name,
		MaterialLibrary:     s.mtllib,
		VertexCount:         s.positions.count(),
		NormalCount:         s.normals.count(),
		UVCount:             s.uvs.count(),
		GroupCount:          s.groupCount,
		MaterialCount:       s.materialCount,
		SmoothingGroupCount: s.smoothingGroupCount,
		BucketCount:         len(object.Buckets),
	}

	s.buckets = nil
	s.index = nil
	s.active = nil
	return object
}

// release returns the attribute pools to the buffer pool.
func (s *segment) release() {
	s.positions.release()
	s.uvs.release()
	s.normals.release()
}
