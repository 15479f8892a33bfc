package evaluator

import (
	"slices"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// freeIdentifiers returns the sorted root identifiers referenced by a parsed
// expression. Comprehension variables such as x in list.exists(x, x > 1) are
// bound inside the macro and are not reported.
func freeIdentifiers(ast *cel.Ast) ([]string, error) {
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool)
	collectIdentifiers(parsed.GetExpr(), nil, found)

	result := make([]string, 0, len(found))
	for name := range found {
		result = append(result, name)
	}

	slices.Sort(result)

	return result, nil
}

func collectIdentifiers(expr *exprpb.Expr, bound map[string]bool, found map[string]bool) {
	if expr == nil {
		return
	}

	switch expr.GetExprKind().(type) {
	case *exprpb.Expr_IdentExpr:
		name := expr.GetIdentExpr().GetName()
		if !bound[name] {
			found[name] = true
		}
	case *exprpb.Expr_SelectExpr:
		collectIdentifiers(expr.GetSelectExpr().GetOperand(), bound, found)
	case *exprpb.Expr_CallExpr:
		call := expr.GetCallExpr()
		collectIdentifiers(call.GetTarget(), bound, found)

		for _, arg := range call.GetArgs() {
			collectIdentifiers(arg, bound, found)
		}
	case *exprpb.Expr_ListExpr:
		for _, elem := range expr.GetListExpr().GetElements() {
			collectIdentifiers(elem, bound, found)
		}
	case *exprpb.Expr_StructExpr:
		for _, entry := range expr.GetStructExpr().GetEntries() {
			if _, ok := entry.GetKeyKind().(*exprpb.Expr_CreateStruct_Entry_MapKey); ok {
				collectIdentifiers(entry.GetMapKey(), bound, found)
			}

			collectIdentifiers(entry.GetValue(), bound, found)
		}
	case *exprpb.Expr_ComprehensionExpr:
		comp := expr.GetComprehensionExpr()
		collectIdentifiers(comp.GetIterRange(), bound, found)
		collectIdentifiers(comp.GetAccuInit(), bound, found)

		inner := make(map[string]bool, len(bound)+2)
		for name := range bound {
			inner[name] = true
		}

		inner[comp.GetIterVar()] = true
		inner[comp.GetAccuVar()] = true

		collectIdentifiers(comp.GetLoopCondition(), inner, found)
		collectIdentifiers(comp.GetLoopStep(), inner, found)
		collectIdentifiers(comp.GetResult(), inner, found)
	}
}
