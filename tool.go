package taylor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ============================================================
// Expression trees
// ============================================================

var (
	ErrUnknownNode = errors.New("unknown node type")
	ErrUnknownTool = errors.New("unknown tool")
	ErrTooDeep     = errors.New("tower order limit exceeded")
	ErrTooLarge    = errors.New("exponent limit exceeded")
)

// Node is a function of the single variable x, decoded from JSON. It is
// evaluated on towers by Eval, never differentiated symbolically.
type Node struct {
	Type  string
	Value string // literal for num, scale and div
	Exp   uint   // exponent for pow
	Args  []*Node
}

// FromJSON decodes an expression object:
//
//	{"type":"num","value":"1/3"}   {"type":"x"}
//	{"type":"add","terms":[...]}   {"type":"mul","factors":[...]}
//	{"type":"sub","left":..,"right":..}   {"type":"neg","arg":..}
//	{"type":"pow","base":..,"n":3}
//	{"type":"scale","arg":..,"value":2}   {"type":"div","arg":..,"value":2}
func FromJSON(data map[string]interface{}) (*Node, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subNode := func(field string) (*Node, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		return FromJSON(m)
	}
	subNodes := func(field string) ([]*Node, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]*Node, len(raw))
		for i, r := range raw {
			m, ok := r.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			n, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
			}
			out[i] = n
		}
		return out, nil
	}

	switch typ {
	case "x":
		return &Node{Type: typ}, nil
	case "num":
		v, err := literal(data["value"])
		if err != nil {
			return nil, fmt.Errorf("num: %w", err)
		}
		return &Node{Type: typ, Value: v}, nil
	case "add", "mul":
		field := "terms"
		if typ == "mul" {
			field = "factors"
		}
		args, err := subNodes(field)
		if err != nil {
			return nil, err
		}
		return &Node{Type: typ, Args: args}, nil
	case "sub":
		l, err := subNode("left")
		if err != nil {
			return nil, err
		}
		r, err := subNode("right")
		if err != nil {
			return nil, err
		}
		return &Node{Type: typ, Args: []*Node{l, r}}, nil
	case "neg":
		a, err := subNode("arg")
		if err != nil {
			return nil, err
		}
		return &Node{Type: typ, Args: []*Node{a}}, nil
	case "pow":
		b, err := subNode("base")
		if err != nil {
			return nil, err
		}
		k, err := nonNegInt(data["n"])
		if err != nil {
			return nil, fmt.Errorf("pow: %w", err)
		}
		return &Node{Type: typ, Exp: k, Args: []*Node{b}}, nil
	case "scale", "div":
		a, err := subNode("arg")
		if err != nil {
			return nil, err
		}
		v, err := literal(data["value"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		return &Node{Type: typ, Value: v, Args: []*Node{a}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, typ)
}

// literal accepts a JSON number or a string such as "1/3".
func literal(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "", fmt.Errorf("empty numeric literal")
		}
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case json.Number:
		return x.String(), nil
	case nil:
		return "", fmt.Errorf("missing numeric value")
	}
	return "", fmt.Errorf("numeric value must be a number or string, got %T", v)
}

func nonNegInt(v interface{}) (uint, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("order must be a number, got %T", v)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("order must be a non-negative integer, got %v", f)
	}
	return uint(f), nil
}

// Limits bounds evaluation cost. The product rule recurses into both
// factors, so multiplying two deep towers costs exponentially in their
// combined order. MaxOrder alone does not bound pow of a constant base,
// which never grows the tower, so MaxExponent caps the pow exponent.
// Zero disables a limit.
type Limits struct {
	MaxOrder    int
	MaxExponent int
}

var DefaultLimits = Limits{MaxOrder: 16, MaxExponent: 256}

func ParseFloat64(s string) (Float64, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Fl(f), nil
	}
	r, err := RatFromString(s)
	if err != nil {
		return Float64{}, err
	}
	return Fl(r.Float64()), nil
}

func ParseRat(s string) (Rat, error) { return RatFromString(s) }

// Eval evaluates e with x bound to Variable(at). parse converts literals
// into the scalar type in use.
func Eval[T Scalar[T]](e *Node, at T, parse func(string) (T, error), lim Limits) (*Number[T], error) {
	ev := evaluator[T]{x: Variable(at), parse: parse, lim: lim}
	return ev.eval(e)
}

type evaluator[T Scalar[T]] struct {
	x     *Number[T]
	parse func(string) (T, error)
	lim   Limits
}

func (ev evaluator[T]) mul(a, b *Number[T]) (*Number[T], error) {
	if ev.lim.MaxOrder > 0 && a.Order()+b.Order() > ev.lim.MaxOrder {
		return nil, fmt.Errorf("%w: %d + %d > %d", ErrTooDeep, a.Order(), b.Order(), ev.lim.MaxOrder)
	}
	return a.Mul(b), nil
}

func (ev evaluator[T]) eval(e *Node) (*Number[T], error) {
	switch e.Type {
	case "pow":
		if ev.lim.MaxExponent > 0 && e.Exp > uint(ev.lim.MaxExponent) {
			return nil, fmt.Errorf("%w: n = %d > %d", ErrTooLarge, e.Exp, ev.lim.MaxExponent)
		}
	case "x":
		return ev.x.Clone(), nil
	case "num":
		v, err := ev.parse(e.Value)
		if err != nil {
			return nil, err
		}
		return Constant(v), nil
	}

	args := make([]*Number[T], len(e.Args))
	for i, a := range e.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch e.Type {
	case "add":
		return Sum(args...), nil
	case "mul":
		acc := One[T]()
		for _, a := range args {
			var err error
			if acc, err = ev.mul(acc, a); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case "sub":
		return args[0].Sub(args[1]), nil
	case "neg":
		return args[0].Neg(), nil
	case "pow":
		acc := One[T]()
		for i := uint(0); i < e.Exp; i++ {
			var err error
			if acc, err = ev.mul(acc, args[0]); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case "scale", "div":
		s, err := ev.parse(e.Value)
		if err != nil {
			return nil, err
		}
		if e.Type == "div" {
			return args[0].DivScalar(s), nil
		}
		return args[0].MulScalar(s), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, e.Type)
}

// ============================================================
// MCP Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func HandleToolCall(req ToolRequest) ToolResponse { return DefaultLimits.HandleToolCall(req) }

// HandleToolCall dispatches req. Params "expr" (object), "at" (number or
// string) and "n" (integer) are shared by the tools; "exact": true evaluates
// over Rat instead of Float64.
func (l Limits) HandleToolCall(req ToolRequest) (resp ToolResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = ToolResponse{Error: fmt.Sprintf("%s: %v", req.Tool, rec)}
		}
	}()
	if req.Tool == "mcp_spec" {
		return ToolResponse{Result: MCPToolSpec()}
	}
	if _, ok := toolNames[req.Tool]; !ok {
		return ToolResponse{Error: fmt.Sprintf("%v: %q", ErrUnknownTool, req.Tool)}
	}
	if exact, _ := req.Params["exact"].(bool); exact {
		return runTool[Rat](req, ParseRat, l)
	}
	return runTool[Float64](req, ParseFloat64, l)
}

var toolNames = map[string]struct{}{
	"evaluate": {}, "derivative": {}, "derivatives": {}, "tower": {}, "taylor_coefficients": {}, "leibniz_check": {},
}

func runTool[T Scalar[T]](req ToolRequest, parse func(string) (T, error), l Limits) ToolResponse {
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	getExpr := func(key string) (*Node, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid type for param %s", key)
		}
		return FromJSON(m)
	}
	getOrder := func() (uint, error) {
		v, ok := req.Params["n"]
		if !ok {
			return 0, fmt.Errorf("missing param: n")
		}
		return nonNegInt(v)
	}
	evalAt := func(key string) (*Number[T], error) {
		e, err := getExpr(key)
		if err != nil {
			return nil, err
		}
		lit, err := literal(req.Params["at"])
		if err != nil {
			return nil, fmt.Errorf("param at: %w", err)
		}
		at, err := parse(lit)
		if err != nil {
			return nil, fmt.Errorf("param at: %w", err)
		}
		return Eval(e, at, parse, l)
	}

	f, err := evalAt("expr")
	if err != nil {
		return fail(err)
	}

	switch req.Tool {
	case "evaluate":
		return ToolResponse{Result: f.Real(), String: f.Real().String()}
	case "tower":
		return ToolResponse{Result: f, String: f.String(), LaTeX: f.LaTeX()}
	}

	k, err := getOrder()
	if err != nil {
		return fail(err)
	}
	if int(k) > l.MaxOrder && l.MaxOrder > 0 {
		return fail(fmt.Errorf("%w: n = %d > %d", ErrTooDeep, k, l.MaxOrder))
	}

	switch req.Tool {
	case "derivative":
		d := f.Derivative(k).Real()
		return ToolResponse{Result: d, String: d.String()}
	case "derivatives":
		return ToolResponse{Result: f.Derivatives(k)}
	case "taylor_coefficients":
		return ToolResponse{Result: f.Coefficients(k)}
	case "leibniz_check":
		g, err := evalAt("other")
		if err != nil {
			return fail(err)
		}
		if f.Order()+g.Order() > l.MaxOrder && l.MaxOrder > 0 {
			return fail(fmt.Errorf("%w: %d + %d > %d", ErrTooDeep, f.Order(), g.Order(), l.MaxOrder))
		}
		if k > MaxLeibnizOrder {
			return fail(fmt.Errorf("%w: leibniz_check n = %d > %d", ErrTooDeep, k, MaxLeibnizOrder))
		}
		viaMul := f.Mul(g).Derivative(k).Real()
		viaSum := Leibniz(f, g, k)
		return ToolResponse{
			Result: map[string]interface{}{"mul": viaMul, "leibniz": viaSum, "agree": viaMul.Equal(viaSum)},
			String: viaMul.String(),
		}
	}
	return fail(fmt.Errorf("%w: %q", ErrUnknownTool, req.Tool))
}

// ============================================================
// Pretty-print and MCP spec
// ============================================================

func MCPToolSpec() string {
	shared := map[string]string{"expr": "object", "at": "number", "exact": "boolean"}
	withN := map[string]string{"expr": "object", "at": "number", "n": "integer", "exact": "boolean"}
	tools := []map[string]interface{}{
		ts("evaluate", "Value of expr at x = at", []string{"expr", "at"}, shared),
		ts("tower", "Full Taylor tower of expr at x = at", []string{"expr", "at"}, shared),
		ts("derivative", "nth derivative of expr at x = at", []string{"expr", "at", "n"}, withN),
		ts("derivatives", "Derivatives 0..n of expr at x = at", []string{"expr", "at", "n"}, withN),
		ts("taylor_coefficients", "Taylor coefficients f^(k)(at)/k! for k = 0..n", []string{"expr", "at", "n"}, withN),
		ts("leibniz_check", "nth derivative of expr*other via the product rule and via the Leibniz sum",
			[]string{"expr", "other", "at", "n"},
			map[string]string{"expr": "object", "other": "object", "at": "number", "n": "integer", "exact": "boolean"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
