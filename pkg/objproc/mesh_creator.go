package objproc

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r3"
)

// MeshBuilder receives every completed object of a parse.
type MeshBuilder interface {
	// BuildMesh consumes a completed object. Buckets are owned by the builder from here on.
	BuildMesh(object *CompletedObject) error
}

// MeshHandler defines a handler function for built meshes.
type MeshHandler func(mesh *Mesh) error

type meshCreatorImpl struct {
	// materials is the known material set, nil accepts every material
	materials map[string]struct{}

	// useMultiMaterials merges several buckets into one mesh with material groups
	useMultiMaterials bool

	// handler receives each built mesh
	handler MeshHandler
}

// NewMeshCreator creates a MeshBuilder that turns completed objects into meshes.
// Materials not in materials are flagged as default; an empty list accepts every material.
func NewMeshCreator(materials []string, useMultiMaterials bool, handler MeshHandler) MeshBuilder {
	var known map[string]struct{}
	if len(materials) > 0 {
		known = make(map[string]struct{}, len(materials))
		for _, name := range materials {
			known[name] = struct{}{}
		}
	}

	return &meshCreatorImpl{
		materials:         known,
		useMultiMaterials: useMultiMaterials,
		handler:           handler,
	}
}

// BuildMesh emits one multi-material mesh per object, or one mesh per bucket.
func (m *meshCreatorImpl) BuildMesh(object *CompletedObject) error {
	if m.useMultiMaterials && len(object.Buckets) > 1 {
		return m.emit(m.buildMultiMaterialMesh(object))
	}

	for _, bucket := range object.Buckets {
		if err := m.emit(m.buildSingleMaterialMesh(object.Sequence, bucket)); err != nil {
			return err
		}
	}
	return nil
}

func (m *meshCreatorImpl) emit(mesh *Mesh) error {
	if m.handler == nil {
		return nil
	}
	return m.handler(mesh)
}

// describeMaterial creates the material description for a bucket.
func (m *meshCreatorImpl) describeMaterial(bucket *GroupBucket) MaterialDescription {
	desc := MaterialDescription{
		Name: bucket.MaterialName,
		Flat: bucket.Flat(),
	}

	if m.materials != nil {
		if _, ok := m.materials[bucket.MaterialName]; !ok {
			desc.Default = true
			log.Warn().
				Str("object", bucket.ObjectName).
				Str("group", bucket.GroupName).
				Str("material", bucket.MaterialName).
				Msg("material is not defined - assigning default material")
		}
	}
	return desc
}

func (m *meshCreatorImpl) buildSingleMaterialMesh(sequence int, bucket *GroupBucket) *Mesh {
	mesh := &Mesh{
		Name:          meshName(bucket),
		Sequence:      sequence,
		Materials:     []MaterialDescription{m.describeMaterial(bucket)},
		Positions:     bucket.Positions,
		Normals:       bucket.Normals,
		UVs:           bucket.UVs,
		LinePositions: bucket.LinePositions,
		LineUVs:       bucket.LineUVs,
	}
	mesh.Bounds = computeBounds(mesh.Positions, mesh.LinePositions)
	return mesh
}

// materialKey de-duplicates materials of a multi-material mesh; flat use gets its own entry.
type materialKey struct {
	name string
	flat bool
}

func (m *meshCreatorImpl) buildMultiMaterialMesh(object *CompletedObject) *Mesh {
	mesh := &Mesh{
		Sequence:      object.Sequence,
		MultiMaterial: true,
		Positions:     make([]float32, 0, object.AbsoluteVertexCount),
		LinePositions: make([]float32, 0, object.AbsoluteLineVertexCount),
	}

	// attribute arrays are only kept when every corner has them
	vertices := object.AbsoluteVertexCount / 3
	withNormals := object.AbsoluteNormalCount > 0 && object.AbsoluteNormalCount/3 == vertices
	withUVs := object.AbsoluteUVCount > 0 && object.AbsoluteUVCount/2 == vertices
	if withNormals {
		mesh.Normals = make([]float32, 0, object.AbsoluteNormalCount)
	}
	if withUVs {
		mesh.UVs = make([]float32, 0, object.AbsoluteUVCount)
	}
	if !withNormals && object.AbsoluteNormalCount > 0 || !withUVs && object.AbsoluteUVCount > 0 {
		log.Debug().
			Int("sequence", object.Sequence).
			Bool("normals", withNormals).
			Bool("uvs", withUVs).
			Msg("dropping partial attribute arrays from multi-material mesh")
	}

	materialIndex := make(map[materialKey]int)
	vertexOffset := 0

	for _, bucket := range object.Buckets {
		desc := m.describeMaterial(bucket)
		key := materialKey{name: desc.Name, flat: desc.Flat}

		// re-use the material if already used before
		index, ok := materialIndex[key]
		if !ok {
			index = len(mesh.Materials)
			materialIndex[key] = index
			mesh.Materials = append(mesh.Materials, desc)
		}

		count := len(bucket.Positions) / 3
		if count > 0 {
			mesh.Groups = append(mesh.Groups, MaterialGroup{
				Start:         vertexOffset,
				Count:         count,
				MaterialIndex: index,
			})
		}
		vertexOffset += count

		mesh.Positions = append(mesh.Positions, bucket.Positions...)
		mesh.LinePositions = append(mesh.LinePositions, bucket.LinePositions...)
		mesh.LineUVs = append(mesh.LineUVs, bucket.LineUVs...)
		if withNormals {
			mesh.Normals = append(mesh.Normals, bucket.Normals...)
		}
		if withUVs {
			mesh.UVs = append(mesh.UVs, bucket.UVs...)
		}

		// the last bucket names the mesh
		mesh.Name = meshName(bucket)
	}

	mesh.Bounds = computeBounds(mesh.Positions, mesh.LinePositions)
	return mesh
}

// meshName prefers a declared group name over the object name.
func meshName(bucket *GroupBucket) string {
	if bucket.GroupName != "" && bucket.GroupName != defaultName {
		return bucket.GroupName
	}
	return bucket.ObjectName
}

// computeBounds returns the bounding box of the finite positions, or an empty box when there are none.
func computeBounds(sets ...[]float32) r3.Box {
	found := false
	var box r3.Box

	for _, positions := range sets {
		for i := 0; i+2 < len(positions); i += 3 {
			p := r3.Vec{
				X: float64(positions[i]),
				Y: float64(positions[i+1]),
				Z: float64(positions[i+2]),
			}
			if !finite(p) {
				continue
			}

			point := r3.Box{Min: p, Max: p}
			if !found {
				box = point
				found = true
				continue
			}
			box = box.Union(point)
		}
	}
	return box
}

func finite(p r3.Vec) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
