package taylor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================
// Rendering and JSON
// ============================================================

// String renders the full nested structure, e.g.
// Perturbed(3, Unperturbed(1)).
func (n *Number[T]) String() string {
	var b strings.Builder
	n.writeTo(&b)
	return b.String()
}

func (n *Number[T]) writeTo(b *strings.Builder) {
	if n.d == nil {
		fmt.Fprintf(b, "Unperturbed(%s)", n.re.String())
		return
	}
	fmt.Fprintf(b, "Perturbed(%s, ", n.re.String())
	n.d.writeTo(b)
	b.WriteByte(')')
}

// LaTeX lists every level of the tower: f = 27,\; f' = 27,\; f'' = 18, ...
func (n *Number[T]) LaTeX() string {
	vals := n.Derivatives(uint(n.Order()))
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%s = %s", latexName(i), v.String())
	}
	return strings.Join(parts, `,\; `)
}

func latexName(i int) string {
	if i <= 3 {
		return "f" + strings.Repeat("'", i)
	}
	return fmt.Sprintf("f^{(%d)}", i)
}

type numberJSON[T Scalar[T]] struct {
	Real       T          `json:"real"`
	Derivative *Number[T] `json:"derivative,omitempty"`
}

func (n *Number[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(numberJSON[T]{Real: n.re, Derivative: n.d})
}

func (n *Number[T]) UnmarshalJSON(data []byte) error {
	var w numberJSON[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.re, n.d = w.Real, w.Derivative
	return nil
}
