package policy

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
)

// DefaultExpression defers entirely to the viewer's grants.
const DefaultExpression = "granted"

// CELEngine evaluates a boolean CEL expression per request. The expression
// sees viewer_id, action, target_id, path and granted.
type CELEngine struct {
	expr    string
	program cel.Program
}

// NewCELEngine compiles expr. An empty expression uses DefaultExpression.
func NewCELEngine(expr string) (*CELEngine, error) {
	if expr == "" {
		expr = DefaultExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("viewer_id", cel.IntType),
		cel.Variable("action", cel.StringType),
		cel.Variable("target_id", cel.IntType),
		cel.Variable("path", cel.StringType),
		cel.Variable("granted", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling policy expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("policy expression must be boolean, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("creating CEL program: %w", err)
	}
	return &CELEngine{expr: expr, program: program}, nil
}

// Expression returns the compiled source.
func (e *CELEngine) Expression() string { return e.expr }

// Allow evaluates the expression. Evaluation errors deny.
func (e *CELEngine) Allow(req Request) bool {
	out, _, err := e.program.Eval(map[string]any{
		"viewer_id": req.ViewerID,
		"action":    string(req.Action),
		"target_id": req.TargetID,
		"path":      req.Path,
		"granted":   req.Granted,
	})
	if err != nil {
		slog.Warn("policy evaluation failed", "action", req.Action, "target", req.TargetID, "error", err)
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}
