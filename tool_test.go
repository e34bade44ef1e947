package taylor_test

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taylor "github.com/njchilds90/gotaylor"
)

func obj(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

// x³ - 2x + 1/2, written with every node type.
const polyJSON = `{"type":"add","terms":[
	{"type":"pow","base":{"type":"x"},"n":3},
	{"type":"neg","arg":{"type":"scale","arg":{"type":"x"},"value":2}},
	{"type":"sub","left":{"type":"num","value":"1"},"right":{"type":"div","arg":{"type":"num","value":1},"value":"2"}},
	{"type":"mul","factors":[{"type":"num","value":0},{"type":"x"}]}
]}`

// ============================================================
// Rendering and JSON tests
// ============================================================

func TestLaTeX(t *testing.T) {
	c := cube(taylor.Variable(fl(3))).Mul(taylor.Variable(fl(3)))
	got := c.LaTeX()
	if !strings.HasPrefix(got, `f = 81,\; f' = 108,\; f'' = 108,\; f''' = 72`) {
		t.Errorf("unexpected LaTeX %s", got)
	}
	if !strings.HasSuffix(got, `f^{(4)} = 24`) {
		t.Errorf("fourth level should use f^{(4)}, got %s", got)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	c := cube(taylor.Variable(fl(3)))
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"real":27,"derivative":{"real":27,"derivative":{"real":18,"derivative":{"real":6}}}}`, string(b))

	var back taylor.Number[f64]
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(c))
	assert.Equal(t, c.String(), back.String())
}

func TestJSON_RatRoundTrip(t *testing.T) {
	x := taylor.Variable(taylor.R(1, 3))
	b, err := json.Marshal(x.Mul(x))
	require.NoError(t, err)
	assert.JSONEq(t, `{"real":"1/9","derivative":{"real":"2/3","derivative":{"real":"2"}}}`, string(b))

	var back taylor.Number[taylor.Rat]
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "Perturbed(1/9, Perturbed(2/3, Unperturbed(2)))", back.String())
}

func TestJSON_NonFiniteFloats(t *testing.T) {
	x := taylor.Variable(fl(1)).DivScalar(fl(0))
	b, err := json.Marshal(x)
	require.NoError(t, err)
	assert.JSONEq(t, `{"real":"+Inf","derivative":{"real":"+Inf"}}`, string(b))

	var back taylor.Number[f64]
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsInf(back.Real().V, 1))

	for _, v := range []float64{math.Inf(-1), math.NaN(), 2.5} {
		b, err := json.Marshal(fl(v))
		require.NoError(t, err)
		var f f64
		require.NoError(t, json.Unmarshal(b, &f))
		assert.Equal(t, fl(v).String(), f.String())
	}

	var f f64
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestJSON_ComplexRoundTrip(t *testing.T) {
	z := taylor.Variable(taylor.Cx(complex(1, 2)))
	b, err := json.Marshal(z.Mul(z))
	require.NoError(t, err)
	assert.JSONEq(t, `{"real":{"re":-3,"im":4},"derivative":{"real":{"re":2,"im":4},"derivative":{"real":{"re":2,"im":0}}}}`, string(b))

	var back taylor.Number[taylor.Complex[complex128]]
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(z.Mul(z)))

	var c64 taylor.Complex[complex64]
	require.NoError(t, json.Unmarshal([]byte(`{"re":0.5,"im":-1}`), &c64))
	assert.Equal(t, complex64(complex(0.5, -1)), c64.V)
}

// ============================================================
// Expression tree tests
// ============================================================

func TestFromJSON_Errors(t *testing.T) {
	_, err := taylor.FromJSON(obj(t, `{"type":"sin","arg":{"type":"x"}}`))
	assert.True(t, errors.Is(err, taylor.ErrUnknownNode))

	for _, bad := range []string{
		`{}`,
		`{"type":""}`,
		`{"type":"add","terms":{}}`,
		`{"type":"pow","base":{"type":"x"},"n":-1}`,
		`{"type":"pow","base":{"type":"x"},"n":1.5}`,
		`{"type":"num"}`,
		`{"type":"sub","left":{"type":"x"}}`,
	} {
		_, err := taylor.FromJSON(obj(t, bad))
		assert.Error(t, err, bad)
	}
}

func TestEval_Polynomial(t *testing.T) {
	e, err := taylor.FromJSON(obj(t, polyJSON))
	require.NoError(t, err)

	f, err := taylor.Eval(e, fl(2), taylor.ParseFloat64, taylor.DefaultLimits)
	require.NoError(t, err)
	got := f.Derivatives(4)
	// 8 - 4 + 1/2, 3x²-2, 6x, 6, 0
	want := []float64{4.5, 10, 12, 6, 0}
	for i := range want {
		assert.InDelta(t, want[i], got[i].V, 1e-12, "d^%d", i)
	}
}

func TestEval_ExactAndLimits(t *testing.T) {
	e, err := taylor.FromJSON(obj(t, polyJSON))
	require.NoError(t, err)

	f, err := taylor.Eval(e, taylor.R(1, 2), taylor.ParseRat, taylor.DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, "-3/8", f.Real().String())

	_, err = taylor.Eval(e, taylor.R(1, 2), taylor.ParseRat, taylor.Limits{MaxOrder: 2})
	assert.True(t, errors.Is(err, taylor.ErrTooDeep))
}

func TestEval_ExponentLimit(t *testing.T) {
	e, err := taylor.FromJSON(obj(t, `{"type":"pow","base":{"type":"num","value":"1.0000001"},"n":2000000000}`))
	require.NoError(t, err)

	_, err = taylor.Eval(e, fl(1), taylor.ParseFloat64, taylor.DefaultLimits)
	assert.True(t, errors.Is(err, taylor.ErrTooLarge))
	_, err = taylor.Eval(e, taylor.R(1, 1), taylor.ParseRat, taylor.DefaultLimits)
	assert.True(t, errors.Is(err, taylor.ErrTooLarge))

	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool:   "evaluate",
		Params: map[string]interface{}{"expr": obj(t, `{"type":"pow","base":{"type":"num","value":"1.0000001"},"n":2000000000}`), "at": 1.0},
	})
	assert.Contains(t, resp.Error, "exponent limit exceeded")

	e, err = taylor.FromJSON(obj(t, `{"type":"pow","base":{"type":"num","value":"2"},"n":256}`))
	require.NoError(t, err)
	f, err := taylor.Eval(e, taylor.R(1, 1), taylor.ParseRat, taylor.DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 256).String(), f.Real().String())
}

// ============================================================
// MCP tool tests
// ============================================================

func TestHandleToolCall_Derivative(t *testing.T) {
	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool:   "derivative",
		Params: map[string]interface{}{"expr": obj(t, polyJSON), "at": 2.0, "n": 1.0},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "10", resp.String)
}

func TestHandleToolCall_Exact(t *testing.T) {
	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool:   "taylor_coefficients",
		Params: map[string]interface{}{"expr": obj(t, polyJSON), "at": "1/2", "n": 3.0, "exact": true},
	})
	require.Empty(t, resp.Error)
	coeffs, ok := resp.Result.([]taylor.Rat)
	require.True(t, ok, "got %T", resp.Result)
	// f(1/2) = -3/8, f' = -5/4, f''/2 = 3/2, f'''/6 = 1
	got := make([]string, len(coeffs))
	for i, c := range coeffs {
		got[i] = c.String()
	}
	assert.Equal(t, []string{"-3/8", "-5/4", "3/2", "1"}, got)
}

func TestHandleToolCall_Tower(t *testing.T) {
	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool:   "tower",
		Params: map[string]interface{}{"expr": obj(t, `{"type":"pow","base":{"type":"x"},"n":3}`), "at": 3.0},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "Perturbed(27, Perturbed(27, Perturbed(18, Unperturbed(6))))", resp.String)
	assert.Contains(t, resp.LaTeX, `f''' = 6`)
}

func TestHandleToolCall_LeibnizCheck(t *testing.T) {
	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool: "leibniz_check",
		Params: map[string]interface{}{
			"expr":  obj(t, polyJSON),
			"other": obj(t, `{"type":"pow","base":{"type":"x"},"n":2}`),
			"at":    "3/2",
			"n":     2.0,
			"exact": true,
		},
	})
	require.Empty(t, resp.Error)
	m, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, m["agree"])
}

func TestHandleToolCall_Errors(t *testing.T) {
	cases := []taylor.ToolRequest{
		{Tool: "nonexistent", Params: map[string]interface{}{}},
		{Tool: "derivative", Params: map[string]interface{}{"at": 1.0, "n": 1.0}},
		{Tool: "derivative", Params: map[string]interface{}{"expr": obj(t, `{"type":"x"}`), "at": 1.0}},
		{Tool: "derivative", Params: map[string]interface{}{"expr": obj(t, `{"type":"x"}`), "at": 1.0, "n": 99.0}},
		{Tool: "evaluate", Params: map[string]interface{}{"expr": obj(t, `{"type":"x"}`), "at": "abc"}},
	}
	for _, req := range cases {
		if resp := taylor.HandleToolCall(req); resp.Error == "" {
			t.Errorf("expected error for %+v", req.Params)
		}
	}
}

func TestHandleToolCall_LeibnizOrderBound(t *testing.T) {
	wide := taylor.Limits{MaxOrder: 100, MaxExponent: 8}
	resp := wide.HandleToolCall(taylor.ToolRequest{
		Tool: "leibniz_check",
		Params: map[string]interface{}{
			"expr":  obj(t, `{"type":"x"}`),
			"other": obj(t, `{"type":"x"}`),
			"at":    1.0,
			"n":     float64(taylor.MaxLeibnizOrder + 1),
		},
	})
	assert.Contains(t, resp.Error, "leibniz_check n = 62")
}

func TestHandleToolCall_RecoversDivisionByZero(t *testing.T) {
	resp := taylor.HandleToolCall(taylor.ToolRequest{
		Tool: "evaluate",
		Params: map[string]interface{}{
			"expr":  obj(t, `{"type":"div","arg":{"type":"x"},"value":"0"}`),
			"at":    "1",
			"exact": true,
		},
	})
	assert.Contains(t, resp.Error, "division by zero")
}

func TestMCPToolSpec(t *testing.T) {
	spec := taylor.MCPToolSpec()
	if !strings.Contains(spec, "derivative") {
		t.Error("MCP spec should contain 'derivative'")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(spec), &m); err != nil {
		t.Errorf("MCP spec should be valid JSON: %v", err)
	}
	resp := taylor.HandleToolCall(taylor.ToolRequest{Tool: "mcp_spec"})
	assert.Equal(t, spec, resp.Result)
}
