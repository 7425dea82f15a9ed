package operation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/atelier/pkg/delta"
)

type project struct {
	n int
}

type incr struct{ amount int }

func (o incr) Name() string { return "incr" }
func (o incr) Perform(r *delta.Recorder[project]) {
	p := r.ProjectMut()
	old := p.n
	p.n += o.amount
	r.Push(restoreN{old: old})
}
func (o incr) Inverse(p *project) (Operation[project], bool) {
	return decr{amount: o.amount}, true
}
func (o incr) Serialize() []byte { return []byte(fmt.Sprintf("%d", o.amount)) }

type decr struct{ amount int }

func (o decr) Name() string { return "decr" }
func (o decr) Perform(r *delta.Recorder[project]) {
	r.ProjectMut().n -= o.amount
}
func (o decr) Inverse(p *project) (Operation[project], bool) {
	return incr{amount: o.amount}, true
}
func (o decr) Serialize() []byte { return []byte(fmt.Sprintf("%d", o.amount)) }

type restoreN struct{ old int }

func (d restoreN) Perform() {}

func deserializeIncr(data []byte) (Operation[project], error) {
	var amount int
	if _, err := fmt.Sscanf(string(data), "%d", &amount); err != nil {
		return nil, err
	}
	return incr{amount: amount}, nil
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry[project]()
	reg.Register("incr", deserializeIncr)

	op, err := reg.Dispatch("incr", []byte("5"))
	require.NoError(t, err)
	assert.Equal(t, incr{amount: 5}, op)
}

func TestRegistryDispatchUnknownName(t *testing.T) {
	reg := NewRegistry[project]()

	_, err := reg.Dispatch("missing", nil)
	assert.Error(t, err)
}

func TestRegistryRegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry[project]()
	reg.Register("incr", deserializeIncr)

	assert.Panics(t, func() {
		reg.Register("incr", deserializeIncr)
	})
}

func TestOperationPerformAndInverse(t *testing.T) {
	p := &project{n: 10}
	modified := false
	ctx := &delta.ProjectContext[project]{Project: p, ProjectModified: &modified}
	r := delta.NewRecorder(ctx)

	op := incr{amount: 5}
	op.Perform(r)
	assert.Equal(t, 15, p.n)
	assert.True(t, modified)

	inverse, ok := op.Inverse(p)
	require.True(t, ok)
	inverse.Perform(r)
	assert.Equal(t, 10, p.n)
}
