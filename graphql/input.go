// Package graphql adapts GraphQL mutation input to the admission engine:
// it converts gqlparser AST argument values into the mutation package's
// value trees and maps mutation field names to entity operations. Schema
// generation and query execution live in the (external) GraphQL transport.
package graphql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tern-api/tern"
	"github.com/tern-api/tern/mutation"
)

// InputObject converts a GraphQL object argument value into a mutation
// value tree. vars supplies operation variables for ast.Variable references.
func InputObject(v *ast.Value, vars map[string]any) (mutation.ObjectValue, error) {
	converted, err := convertValue(v, vars)
	if err != nil {
		return nil, err
	}
	obj, ok := converted.(mutation.ObjectValue)
	if !ok {
		return nil, fmt.Errorf("tern/graphql: input argument is not an object")
	}
	return obj, nil
}

func convertValue(v *ast.Value, vars map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch v.Kind {
	case ast.Variable:
		return convertVariable(vars[v.Raw])
	case ast.NullValue:
		return nil, nil
	case ast.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tern/graphql: invalid int literal %q: %w", v.Raw, err)
		}
		return n, nil
	case ast.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("tern/graphql: invalid float literal %q: %w", v.Raw, err)
		}
		return f, nil
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.ObjectValue:
		obj := make(mutation.ObjectValue, len(v.Children))
		for _, child := range v.Children {
			value, err := convertValue(child.Value, vars)
			if err != nil {
				return nil, err
			}
			obj[child.Name] = value
		}
		return obj, nil
	case ast.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			value, err := convertValue(child.Value, vars)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	}
	return nil, fmt.Errorf("tern/graphql: unsupported value kind %d", v.Kind)
}

// convertVariable normalizes a decoded variable value. JSON-decoded
// variables already use map[string]any and []any, which the mutation
// package accepts; object maps are retyped for uniformity.
func convertVariable(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		obj := make(mutation.ObjectValue, len(v))
		for name, item := range v {
			converted, err := convertVariable(item)
			if err != nil {
				return nil, err
			}
			obj[name] = converted
		}
		return obj, nil
	case []any:
		list := make([]any, 0, len(v))
		for _, item := range v {
			converted, err := convertVariable(item)
			if err != nil {
				return nil, err
			}
			list = append(list, converted)
		}
		return list, nil
	default:
		return value, nil
	}
}

// MutationTarget maps a generated mutation field name to the operation and
// entity it addresses: createBook -> (Create, "Book"). Returns false for
// field names outside the generated naming scheme.
func MutationTarget(fieldName string) (tern.Operation, string, bool) {
	for prefix, op := range map[string]tern.Operation{
		"create": tern.OperationCreate,
		"update": tern.OperationUpdate,
		"delete": tern.OperationDelete,
	} {
		if entity, ok := strings.CutPrefix(fieldName, prefix); ok && entity != "" {
			return op, entity, true
		}
	}
	return 0, "", false
}
