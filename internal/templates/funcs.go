package templates

import (
	"strings"
	"text/template"
)

// DefaultFuncs returns the helper functions available to every template
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"mul":   func(a, b int) int { return a * b },
		"pow2":  Pow2,
		"seq":   Seq,
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"quote": func(s string) string { return `"` + s + `"` },
	}
}

// Pow2 returns 2 to the power n
func Pow2(n int) int {
	return 1 << uint(n)
}

// Seq returns the integers [from, to] counting up, or down when to < from
func Seq(from, to int) []int {
	if to >= from {
		out := make([]int, 0, to-from+1)
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	}
	out := make([]int, 0, from-to+1)
	for i := from; i >= to; i-- {
		out = append(out, i)
	}
	return out
}
