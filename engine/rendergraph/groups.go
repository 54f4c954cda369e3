package rendergraph

import (
	"sync"
)

// BuildGroup is the key of a render group: the pass types a drawable renders into and the
// masks it is filtered with.
type BuildGroup struct {
	PassTypes  PassType
	CameraMask uint32
	ShadowMask uint32
}

// Group is the list of passes that drawables with the same BuildGroup submit to.
type Group struct {
	Key    BuildGroup
	Passes []int
}

// NoGroup is the render group of a drawable that has not been assigned one.
const NoGroup = -1

// GroupCache memoizes render groups. Every rebuild of the graph invalidates it.
type GroupCache struct {
	mu     *sync.Mutex
	groups []Group
	index  map[BuildGroup]int
	gen    uint64
}

// NewGroupCache returns an empty cache.
func NewGroupCache() *GroupCache {
	return &GroupCache{
		mu:    &sync.Mutex{},
		index: map[BuildGroup]int{},
	}
}

// FindOrCreate returns the id of the group for key, building its pass list from g on first use.
// A pass belongs to the group when it has one of the key's pass types and both masks overlap.
//
// Parameters:
//   - g: the graph the passes are taken from
//   - key: the group key
//
// Returns:
//   - int: the group id, stable until the cache is invalidated
func (c *GroupCache) FindOrCreate(g *Graph, key BuildGroup) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.index[key]; ok {
		return id
	}
	group := Group{Key: key}
	for i := range g.Passes {
		p := &g.Passes[i]
		if p.Type&key.PassTypes == 0 {
			continue
		}
		if p.ShadowMask&key.ShadowMask == 0 || p.CameraMask&key.CameraMask == 0 {
			continue
		}
		group.Passes = append(group.Passes, i)
	}
	c.groups = append(c.groups, group)
	id := len(c.groups) - 1
	c.index[key] = id
	return id
}

// Group returns a group by id. Unknown ids return an empty group.
func (c *GroupCache) Group(id int) Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 0 || id >= len(c.groups) {
		return Group{}
	}
	return c.groups[id]
}

// Invalidate drops every group. Previously returned ids are no longer valid.
func (c *GroupCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = c.groups[:0]
	clear(c.index)
	c.gen++
}

// Generation changes every time the cache is invalidated.
func (c *GroupCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Len returns the number of groups built since the last invalidation.
func (c *GroupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups)
}

// Drawable is anything that is submitted to render groups.
type Drawable interface {
	Transparent() bool
	CameraMask() uint32
	ShadowMask() uint32
	SetRenderGroup(group int)
}

// GroupKeyFor returns the build group of a drawable. Opaque drawables render into the depth
// prepass, opaque and shadow passes; transparent ones only into transparent passes.
func GroupKeyFor(d Drawable) BuildGroup {
	types := PassOpaque | PassZOnly | PassShadowMap
	if d.Transparent() {
		types = PassTransparent
	}
	return BuildGroup{PassTypes: types, CameraMask: d.CameraMask(), ShadowMask: d.ShadowMask()}
}

// AssignRenderGroups gives every drawable the group matching its key.
//
// Parameters:
//   - g: the graph
//   - drawables: the drawables to assign
//
// Returns:
//   - int: the number of groups in the cache afterwards
func (c *GroupCache) AssignRenderGroups(g *Graph, drawables []Drawable) int {
	for _, d := range drawables {
		d.SetRenderGroup(c.FindOrCreate(g, GroupKeyFor(d)))
	}
	return c.Len()
}
