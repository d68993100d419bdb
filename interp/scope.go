package interp

import "github.com/prtcl-go/prtcl/model"

// scope holds everything a statement needs to resolve identifiers:
// local stack variables, the current index bindings (outer particle
// and any nested neighbor), and which (group, index) the *enclosing*
// foreach-particle loop is iterating, so a nested foreach-neighbor
// knows which particle to query the grid for.
type scope struct {
	locals    map[string]value
	bindIndex map[string]int
	bindGroup map[string]*model.Group

	particleIndexName string
	particleGroup     *model.Group
	particleIndex     int
}

func newScope() *scope {
	return &scope{
		locals:    make(map[string]value),
		bindIndex: make(map[string]int),
		bindGroup: make(map[string]*model.Group),
	}
}

// child returns a shallow copy scoped to a nested block: the nested
// block may add its own bindings/locals without mutating the parent's.
func (s *scope) child() *scope {
	c := &scope{
		locals:            make(map[string]value, len(s.locals)),
		bindIndex:         make(map[string]int, len(s.bindIndex)),
		bindGroup:         make(map[string]*model.Group, len(s.bindGroup)),
		particleIndexName: s.particleIndexName,
		particleGroup:     s.particleGroup,
		particleIndex:     s.particleIndex,
	}
	for k, v := range s.locals {
		c.locals[k] = v
	}
	for k, v := range s.bindIndex {
		c.bindIndex[k] = v
	}
	for k, v := range s.bindGroup {
		c.bindGroup[k] = v
	}
	return c
}
