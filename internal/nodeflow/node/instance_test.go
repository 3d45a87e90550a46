package node

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// doubler is a minimal node used to exercise the framework wrappers. It
// declares one numeric input and one output, and its Process can be rigged
// to emit a value whose schema drifts from the inferred one.
type doubler struct {
	Base
	emitDrifted bool
}

func newDoubler(ctx Context) (Node, error) {
	return &doubler{Base: NewBase(ctx)}, nil
}

func (n *doubler) ValidateParameters() error {
	if _, bad := n.Params["explode"]; bad {
		return errors.NewParameterError(n.NodeID, "explode", "not a real parameter")
	}
	return nil
}

func (n *doubler) PortDef() ([]InPort, []OutPort) {
	return []InPort{
			{Name: "value", Accept: schema.AcceptNumeric()},
		}, []OutPort{
			{Name: "result"},
		}
}

func (n *doubler) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	return map[string]*schema.Schema{"result": schema.Scalar(in["value"].Tag)}, nil
}

func (n *doubler) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	if n.emitDrifted {
		return map[string]*data.Data{"result": data.Str("oops")}, nil
	}
	v, err := in["value"].Number()
	if err != nil {
		return nil, err
	}
	if in["value"].Tag() == schema.TagInt {
		i, _ := in["value"].Int()
		return map[string]*data.Data{"result": data.Int(2 * i)}, nil
	}
	return map[string]*data.Data{"result": data.Float(2 * v)}, nil
}

func testInstance(t *testing.T, emitDrifted bool) *Instance {
	t.Helper()
	inst := NewInstance(&doubler{Base: NewBase(Context{ID: "d", Type: "Double"}), emitDrifted: emitDrifted})
	return inst
}

func TestInferSchemaAcceptsAndCaches(t *testing.T) {
	inst := testInstance(t, false)

	out, err := inst.InferSchema(map[string]*schema.Schema{"value": schema.Scalar(schema.TagInt)})
	require.NoError(t, err)
	assert.Equal(t, schema.TagInt, out["result"].Tag)
	assert.Equal(t, schema.TagInt, inst.InSchemas()["value"].Tag)
}

func TestInferSchemaRejectsPatternViolation(t *testing.T) {
	inst := testInstance(t, false)

	_, err := inst.InferSchema(map[string]*schema.Schema{"value": schema.Scalar(schema.TagStr)})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"value"}, ve.ErrInputs)
}

func TestInferSchemaRejectsMissingRequiredPort(t *testing.T) {
	inst := testInstance(t, false)

	_, err := inst.InferSchema(map[string]*schema.Schema{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestInferSchemaRejectsUnknownPort(t *testing.T) {
	inst := testInstance(t, false)

	_, err := inst.InferSchema(map[string]*schema.Schema{
		"value": schema.Scalar(schema.TagInt),
		"bogus": schema.Scalar(schema.TagInt),
	})
	assert.Error(t, err)
}

func TestExecuteRequiresInference(t *testing.T) {
	inst := testInstance(t, false)

	_, err := inst.Execute(map[string]*data.Data{"value": data.Int(3)})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionError(err))
}

func TestExecuteChecksBothEnds(t *testing.T) {
	inst := testInstance(t, false)
	_, err := inst.InferSchema(map[string]*schema.Schema{"value": schema.Scalar(schema.TagInt)})
	require.NoError(t, err)

	out, err := inst.Execute(map[string]*data.Data{"value": data.Int(3)})
	require.NoError(t, err)
	v, err := out["result"].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	// Input drift: a float shows up where an int was inferred.
	_, err = inst.Execute(map[string]*data.Data{"value": data.Float(3)})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionError(err))
	assert.Contains(t, err.Error(), "drifted")
}

func TestExecuteCatchesOutputDrift(t *testing.T) {
	inst := testInstance(t, true)
	_, err := inst.InferSchema(map[string]*schema.Schema{"value": schema.Scalar(schema.TagInt)})
	require.NoError(t, err)

	_, err = inst.Execute(map[string]*data.Data{"value": data.Int(3)})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionError(err))
	assert.Equal(t, "d", errors.NodeID(err))
}

func TestRegistryConstructValidatesParameters(t *testing.T) {
	r := NewRegistry()
	r.Register(&Factory{Type: "Double", New: newDoubler})

	_, err := r.Construct(Context{ID: "d", Type: "Double", Params: Params{"explode": true}})
	require.Error(t, err)
	assert.True(t, errors.IsParameterError(err))

	_, err = r.Construct(Context{ID: "d", Type: "NoSuchType"})
	require.Error(t, err)
	assert.True(t, errors.IsParameterError(err))

	inst, err := r.Construct(Context{ID: "d", Type: "Double"})
	require.NoError(t, err)
	assert.Equal(t, "Double", inst.Type())
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&Factory{Type: "Double", New: newDoubler})
	assert.Panics(t, func() {
		r.Register(&Factory{Type: "Double", New: newDoubler})
	})
}

func TestGetHintSwallowsPanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&Factory{
		Type: "Double",
		New:  newDoubler,
		Hint: func(in map[string]*schema.Schema, params Params) map[string]any {
			panic(fmt.Sprintf("hint bug with %d inputs", len(in)))
		},
	})

	hint := r.GetHint("Double", nil, nil)
	assert.NotNil(t, hint)
	assert.Empty(t, hint)

	assert.Empty(t, r.GetHint("NoSuchType", nil, nil))
}
