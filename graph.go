package vkrg

// GraphBuilder accumulates logical resources and passes. It is not safe for
// concurrent use; build the graph on one goroutine, then freeze it with
// FinalizeAndValidate. A builder stays usable after a failed validation, so
// the caller can fix the description and try again.
type GraphBuilder struct {
	resources     map[Tag]*LogicalResource
	resourceOrder []Tag
	passes        map[Tag]*PassBuilder
	passOrder     []Tag
	backBuffer    Tag
	hasBackBuffer bool
}

// PassBuilder accumulates the resource bindings of one pass.
type PassBuilder struct {
	tag          Tag
	bindings     map[Tag]BindPoint
	bindingOrder []Tag
	rmw          []rmwPair
	reservedUse  bool
}

// rmwPair is a whitelisted read-modify-write aliasing of an input
// attachment onto a color attachment within one pass.
type rmwPair struct {
	input Tag
	color Tag
}

// NewGraphBuilder returns an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		resources: make(map[Tag]*LogicalResource),
		passes:    make(map[Tag]*PassBuilder),
	}
}

// AddResource registers a logical image. Re-registering a tag overwrites
// the previous declaration with a warning.
func (g *GraphBuilder) AddResource(tag Tag, size ImageSize, format ImageFormat, persistence Persistence) Tag {
	if _, ok := g.resources[tag]; ok {
		logger().Warn("resource tag re-registered, overwriting", "tag", tag)
	} else {
		g.resourceOrder = append(g.resourceOrder, tag)
	}
	g.resources[tag] = &LogicalResource{
		Tag:         tag,
		Size:        size,
		Format:      format,
		Persistence: persistence,
	}
	return tag
}

// NewPass registers a pass and returns its builder for chaining Uses calls.
// Re-registering a tag overwrites the previous pass with a warning.
func (g *GraphBuilder) NewPass(tag Tag) *PassBuilder {
	if _, ok := g.passes[tag]; ok {
		logger().Warn("pass tag re-registered, overwriting", "tag", tag)
	} else {
		g.passOrder = append(g.passOrder, tag)
	}
	p := &PassBuilder{
		tag:      tag,
		bindings: make(map[Tag]BindPoint),
	}
	g.passes[tag] = p
	return p
}

// SetBackBuffer designates the graph's final output resource.
func (g *GraphBuilder) SetBackBuffer(tag Tag) {
	g.backBuffer = tag
	g.hasBackBuffer = true
}

// Uses records that the pass binds the resource at the given bind point.
// Binding the same tag again overwrites the previous bind point. The two
// aliased bind points are reserved for the compiler; requesting one marks
// the pass invalid and validation will fail. Read-modify-write aliasing is
// requested with AllowReadModifyWrite instead.
func (p *PassBuilder) Uses(tag Tag, bind BindPoint) *PassBuilder {
	if bind.reserved() {
		logger().Warn("reserved bind point requested directly", "pass", p.tag, "resource", tag, "bindPoint", bind)
		p.reservedUse = true
		return p
	}
	if _, ok := p.bindings[tag]; !ok {
		p.bindingOrder = append(p.bindingOrder, tag)
	}
	p.bindings[tag] = bind
	return p
}

// AllowReadModifyWrite whitelists aliasing of input onto color within this
// pass: if their lifetimes allow it, the aliaser may back both tags with
// one physical image so the pass reads and writes the same memory.
// Validation checks that input is bound as InputAttachment and color as
// ColorAttachment.
func (p *PassBuilder) AllowReadModifyWrite(input, color Tag) *PassBuilder {
	p.rmw = append(p.rmw, rmwPair{input: input, color: color})
	return p
}
