package submit

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// prepareSkinned selects the skinning path of a skinned object. GPU skinning draws the bind pose
// mesh with bone weights on stream 1 and the bone palette as a uniform. CPU skinning draws the
// dynamic mesh an external skinning step wrote. Objects supporting only the path that is not
// active are skipped.
func (s *submitter) prepareSkinned(it *drawItem, o game_object.GameObject) bool {
	skin := o.Skin()
	if skin == nil {
		s.skip(o, "skinned object without a skin")
		return false
	}
	if !skin.Usable(s.gpuSkinning) {
		s.skip(o, "skinning path not supported")
		return false
	}

	if !s.gpuSkinning || !skin.CanUseGPU {
		if skin.CanUseCPU {
			return s.prepareMesh(it, nil, skin.SkinnedCPU)
		}
		// neither path: the bind pose
		return s.prepareMesh(it, o.Mesh(), o.DynamicMesh())
	}

	d := o.Mesh()
	if d == nil {
		s.skip(o, "GPU skinned object without a bind pose mesh")
		return false
	}
	if len(skin.Weights) != d.VertexCount() {
		logger.Warningf("Object %d has %d bone weights for %d vertices.", o.ID(), len(skin.Weights), d.VertexCount())
		s.slots[mainSlot].stats.Skipped++
		return false
	}
	if !s.prepareMesh(it, d, nil) {
		return false
	}

	weights, err := s.weights.Acquire(skin, func() (renderer.Handle, error) {
		h, err := s.backend.CreateVertexBuffer(mesh.MarshalSkinnedVertices(skin.Weights), mesh.SkinnedLayout)
		if err != nil {
			return h, fmt.Errorf("submit: create bone weights: %w", err)
		}
		return h, nil
	})
	if err != nil {
		logger.Warningf("Object %d: %v", o.ID(), err)
		s.slots[mainSlot].stats.Skipped++
		return false
	}

	it.start, it.count = o.IndexRange()
	it.weights = weights
	it.weightCount = uint32(len(skin.Weights))
	it.bones = skin.Bones
	if len(it.bones) > MaxBones {
		logger.Warningf("Object %d has %d bones, only %d are uploaded.", o.ID(), len(it.bones), MaxBones)
		it.bones = it.bones[:MaxBones]
	}
	it.programs.depth = s.programs.DepthSkinned
	if it.lit != nil {
		it.programs.color = s.programs.LitSkinned
	} else {
		it.programs.color = s.programs.SimpleSkinned
	}
	return true
}
