package vkrg

import (
	"errors"
	"fmt"
)

// Validation errors. FinalizeAndValidate wraps these with the offending
// tags; match with errors.Is. They are the only recoverable error category
// in the package: fix the graph description and validate again. Anything
// that goes wrong after validation is a bug in the compiler, not bad input,
// and panics.
var (
	// ErrNoBackBuffer means SetBackBuffer was never called.
	ErrNoBackBuffer = errors.New("vkrg: no back buffer set")
	// ErrInvalidBackBuffer means the back buffer tag is not registered or
	// no pass writes it.
	ErrInvalidBackBuffer = errors.New("vkrg: invalid back buffer")
	// ErrTagNotRegistered means a pass binds a resource tag that was never
	// added to the builder.
	ErrTagNotRegistered = errors.New("vkrg: resource tag not registered")
	// ErrResourceWrittenTwice means two passes both write one resource.
	ErrResourceWrittenTwice = errors.New("vkrg: logical resource written more than once")
	// ErrAttachmentSizeMismatch means the color/input attachments of one
	// pass disagree on size class.
	ErrAttachmentSizeMismatch = errors.New("vkrg: color or input attachments differ in size")
	// ErrReadModifyWriteBindPoint means an AllowReadModifyWrite pair is not
	// bound as (InputAttachment, ColorAttachment).
	ErrReadModifyWriteBindPoint = errors.New("vkrg: read-modify-write pair has wrong bind points")
	// ErrReservedBindPoint means a pass requested an aliased bind point
	// directly.
	ErrReservedBindPoint = errors.New("vkrg: aliased bind points are assigned by the compiler")
	// ErrGraphCycle means the passes depend on each other in a loop and no
	// schedule can order them.
	ErrGraphCycle = errors.New("vkrg: graph contains a dependency cycle")
)

// FrozenGraph is an immutable, validated graph description. It owns its own
// resource and pass tables; nothing on it mutates after FinalizeAndValidate
// returns. Feed it to Bake, as many times as needed.
type FrozenGraph struct {
	resources     map[Tag]*LogicalResource
	resourceOrder []Tag
	passes        map[Tag]*frozenPass
	passOrder     []Tag
	backBuffer    Tag
}

type frozenPass struct {
	tag          Tag
	bindings     map[Tag]BindPoint
	bindingOrder []Tag
	rmw          []rmwPair
}

// BackBuffer returns the designated final output resource.
func (f *FrozenGraph) BackBuffer() Tag { return f.backBuffer }

// Resource looks up a logical resource declaration by tag.
func (f *FrozenGraph) Resource(tag Tag) (*LogicalResource, bool) {
	r, ok := f.resources[tag]
	return r, ok
}

// FinalizeAndValidate freezes the builder into an immutable graph. On
// failure it returns a typed validation error and no graph; the builder is
// left untouched and can be corrected and finalized again.
func (g *GraphBuilder) FinalizeAndValidate() (*FrozenGraph, error) {
	if !g.hasBackBuffer {
		return nil, ErrNoBackBuffer
	}
	if _, ok := g.resources[g.backBuffer]; !ok {
		return nil, fmt.Errorf("%w: %q is not a registered resource", ErrInvalidBackBuffer, g.backBuffer)
	}

	// Fresh resource table so a failure cannot leave the builder's
	// declarations with half-recorded writers.
	frozen := &FrozenGraph{
		resources:     make(map[Tag]*LogicalResource, len(g.resources)),
		resourceOrder: append([]Tag(nil), g.resourceOrder...),
		passes:        make(map[Tag]*frozenPass, len(g.passes)),
		passOrder:     append([]Tag(nil), g.passOrder...),
		backBuffer:    g.backBuffer,
	}
	for _, tag := range g.resourceOrder {
		r := g.resources[tag]
		frozen.resources[tag] = &LogicalResource{
			Tag:         r.Tag,
			Size:        r.Size,
			Format:      r.Format,
			Persistence: r.Persistence,
		}
	}

	// Record writers and readers.
	for _, passTag := range g.passOrder {
		pass := g.passes[passTag]
		if pass.reservedUse {
			return nil, fmt.Errorf("%w: pass %q", ErrReservedBindPoint, passTag)
		}
		for _, resTag := range pass.bindingOrder {
			res, ok := frozen.resources[resTag]
			if !ok {
				return nil, fmt.Errorf("%w: pass %q uses %q", ErrTagNotRegistered, passTag, resTag)
			}
			bind := pass.bindings[resTag]
			if bind.CanWrite() {
				if !res.hasWriter {
					res.writtenIn = passTag
					res.hasWriter = true
				} else if !bind.CanRead() {
					// A second pure write clobbers the first producer's
					// output. Read-write bind points (depth tests) reuse
					// the contents and join the readers instead.
					return nil, fmt.Errorf("%w: %q written by %q and %q",
						ErrResourceWrittenTwice, resTag, res.writtenIn, passTag)
				}
			}
			if bind.CanRead() {
				res.readIn = append(res.readIn, passTag)
			}
		}
		frozen.passes[passTag] = &frozenPass{
			tag:          passTag,
			bindings:     copyBindings(pass.bindings),
			bindingOrder: append([]Tag(nil), pass.bindingOrder...),
			rmw:          append([]rmwPair(nil), pass.rmw...),
		}
	}

	if !frozen.resources[g.backBuffer].hasWriter {
		return nil, fmt.Errorf("%w: %q is never written", ErrInvalidBackBuffer, g.backBuffer)
	}

	// Pure writes cannot form a loop under the write-once rule, but a
	// read-write rebind (depth tested again in a later pass) adds a
	// dependency edge that can close one with an ordinary read going the
	// other way. The scheduler's walk assumes an acyclic graph, so loops
	// must die here.
	if tag, ok := frozen.findCycle(); ok {
		return nil, fmt.Errorf("%w: involving pass %q", ErrGraphCycle, tag)
	}

	// Color and input attachments of one pass become one framebuffer, so
	// they must agree on a size class.
	for _, passTag := range g.passOrder {
		pass := g.passes[passTag]
		var sizeClass ImageSize
		haveSize := false
		for _, resTag := range pass.bindingOrder {
			bind := pass.bindings[resTag]
			if bind != ColorAttachment && bind != InputAttachment {
				continue
			}
			size := frozen.resources[resTag].Size
			if !haveSize {
				sizeClass, haveSize = size, true
			} else if size != sizeClass {
				return nil, fmt.Errorf("%w: pass %q binds %v and %v",
					ErrAttachmentSizeMismatch, passTag, sizeClass, size)
			}
		}
	}

	// Read-modify-write pairs must be (InputAttachment, ColorAttachment).
	for _, passTag := range g.passOrder {
		pass := g.passes[passTag]
		for _, pair := range pass.rmw {
			in, inOK := pass.bindings[pair.input]
			color, colorOK := pass.bindings[pair.color]
			if !inOK || !colorOK || in != InputAttachment || color != ColorAttachment {
				return nil, fmt.Errorf("%w: pass %q pair (%q, %q)",
					ErrReadModifyWriteBindPoint, passTag, pair.input, pair.color)
			}
		}
	}

	// Orphans are legal, just useless.
	for _, resTag := range frozen.resourceOrder {
		res := frozen.resources[resTag]
		if !res.hasWriter && len(res.readIn) == 0 {
			logger().Warn("orphan resource, never read or written", "tag", resTag)
		}
	}

	return frozen, nil
}

// findCycle runs a depth-first walk over the pass dependency edges (a
// pass depends on the writer of every resource it binds) and returns a
// pass on a cycle, if one exists.
func (f *FrozenGraph) findCycle() (Tag, bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Tag]int, len(f.passes))

	var visit func(Tag) (Tag, bool)
	visit = func(passTag Tag) (Tag, bool) {
		state[passTag] = visiting
		for _, resTag := range f.passes[passTag].bindingOrder {
			res := f.resources[resTag]
			if !res.hasWriter || res.writtenIn == passTag {
				continue
			}
			switch state[res.writtenIn] {
			case visiting:
				return passTag, true
			case unvisited:
				if tag, ok := visit(res.writtenIn); ok {
					return tag, true
				}
			}
		}
		state[passTag] = done
		return "", false
	}

	for _, passTag := range f.passOrder {
		if state[passTag] == unvisited {
			if tag, ok := visit(passTag); ok {
				return tag, true
			}
		}
	}
	return "", false
}

func copyBindings(m map[Tag]BindPoint) map[Tag]BindPoint {
	out := make(map[Tag]BindPoint, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
