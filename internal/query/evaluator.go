// Package query evaluates single data-query expressions against a bound table
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethanbaker/tabletalk/internal/table"
	"github.com/expr-lang/expr"
)

// DefaultMaxOutput caps the rendered result handed back to the model
const DefaultMaxOutput = 4000

// ErrEmptyExpression is returned for blank input
var ErrEmptyExpression = errors.New("expression is empty")

// Evaluator runs expr-lang expressions with one table in scope. Expressions
// are side-effect free and cannot reach anything outside the environment
type Evaluator struct {
	table     *table.Table
	env       map[string]any
	options   []expr.Option
	maxOutput int
}

// Result is the value of an evaluated expression and its textual rendering
type Result struct {
	Value any
	Text  string
}

// NewEvaluator creates an evaluator scoped to t
func NewEvaluator(t *table.Table) *Evaluator {
	e := &Evaluator{
		table: t,
		env: map[string]any{
			"rows":    t.Records(),
			"columns": t.ColumnNames(),
			"nrows":   t.NumRows(),
		},
		maxOutput: DefaultMaxOutput,
	}

	e.options = append([]expr.Option{expr.Env(e.env)}, functions(t)...)

	return e
}

// WithMaxOutput overrides the result length cap
func (e *Evaluator) WithMaxOutput(n int) *Evaluator {
	if n > 0 {
		e.maxOutput = n
	}
	return e
}

// Table returns the bound table
func (e *Evaluator) Table() *table.Table {
	return e.table
}

// Evaluate compiles and runs a single expression. Compilation and runtime
// failures are returned as errors describing what went wrong
func (e *Evaluator) Evaluate(ctx context.Context, expression string) (Result, error) {
	expression = strings.TrimSpace(strings.Trim(strings.TrimSpace(expression), "`"))
	if expression == "" {
		return Result{}, ErrEmptyExpression
	}

	program, err := expr.Compile(expression, e.options...)
	if err != nil {
		return Result{}, fmt.Errorf("invalid expression: %w", err)
	}

	type outcome struct {
		value any
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("evaluation panicked: %v", r)}
			}
		}()

		value, err := expr.Run(program, e.env)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return Result{}, fmt.Errorf("evaluation failed: %w", out.err)
		}
		return Result{Value: out.value, Text: e.render(out.value)}, nil
	}
}

// render formats a value and truncates it to the output cap
func (e *Evaluator) render(value any) string {
	text := Format(value)

	if runes := []rune(text); len(runes) > e.maxOutput {
		text = string(runes[:e.maxOutput]) + "... (truncated)"
	}
	return text
}

// Format renders an expression result as plain text
func Format(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}
