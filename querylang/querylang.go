// Package querylang parses the CLI's query syntax — an EDN list form
// such as (and (eq status "active") (gt age 25)) — into a
// queryast.Query, reusing datalog/edn's lexer/parser for tokenizing
// and tree-building the way datalog/parser reuses it for `[:find ...]`
// queries, generalized from Datalog's pattern/clause shape to this
// engine's simple/logical/FTS predicate shape.
package querylang

import (
	"fmt"
	"strconv"

	"github.com/wbrown/kvqueryengine/datalog/edn"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/value"
)

// Parse parses input as one query expression.
func Parse(input string) (queryast.Query, error) {
	node, err := edn.Parse(input)
	if err != nil {
		return queryast.Query{}, fmt.Errorf("querylang: %w", err)
	}
	return parseNode(node)
}

func parseNode(n *edn.Node) (queryast.Query, error) {
	if n.Type != edn.NodeList {
		return queryast.Query{}, fmt.Errorf("querylang: expected (op ...) form, got %s", n.String())
	}
	if len(n.Nodes) == 0 {
		return queryast.Query{}, fmt.Errorf("querylang: empty expression")
	}
	op, err := symbolOrKeyword(&n.Nodes[0])
	if err != nil {
		return queryast.Query{}, err
	}
	args := n.Nodes[1:]

	switch op {
	case "and", "or":
		children := make([]queryast.Query, 0, len(args))
		for i := range args {
			c, err := parseNode(&args[i])
			if err != nil {
				return queryast.Query{}, err
			}
			children = append(children, c)
		}
		if op == "and" {
			return queryast.And(children...), nil
		}
		return queryast.Or(children...), nil

	case "not":
		if len(args) != 1 {
			return queryast.Query{}, fmt.Errorf("querylang: not takes exactly one argument")
		}
		child, err := parseNode(&args[0])
		if err != nil {
			return queryast.Query{}, err
		}
		return queryast.Not(child), nil

	case "has":
		attr, err := requireAttr(args, 0)
		if err != nil {
			return queryast.Query{}, err
		}
		return queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpHas, Attribute: attr}), nil

	case "eq", "neq", "gt", "gte", "lt", "lte", "like", "regex", "contains":
		attr, err := requireAttr(args, 0)
		if err != nil {
			return queryast.Query{}, err
		}
		if len(args) < 2 {
			return queryast.Query{}, fmt.Errorf("querylang: %s requires an attribute and a value", op)
		}
		v, err := toValue(&args[1])
		if err != nil {
			return queryast.Query{}, err
		}
		return queryast.Simple(queryast.SimpleQuery{Kind: simpleKind(op), Attribute: attr, Value: v}), nil

	case "between":
		attr, err := requireAttr(args, 0)
		if err != nil {
			return queryast.Query{}, err
		}
		if len(args) < 3 {
			return queryast.Query{}, fmt.Errorf("querylang: between requires attribute, from, to")
		}
		from, err := toValue(&args[1])
		if err != nil {
			return queryast.Query{}, err
		}
		to, err := toValue(&args[2])
		if err != nil {
			return queryast.Query{}, err
		}
		return queryast.Simple(queryast.SimpleQuery{
			Kind: queryast.OpBetween, Attribute: attr, From: from, To: to,
			FromIncl: true, ToIncl: false,
		}), nil

	case "in", "containsAll", "containsAny":
		attr, err := requireAttr(args, 0)
		if err != nil {
			return queryast.Query{}, err
		}
		values := make([]value.Value, 0, len(args)-1)
		for i := 1; i < len(args); i++ {
			v, err := toValue(&args[i])
			if err != nil {
				return queryast.Query{}, err
			}
			values = append(values, v)
		}
		return queryast.Simple(queryast.SimpleQuery{Kind: simpleKind(op), Attribute: attr, Values: values}), nil

	case "match", "matchPhrase", "matchPrefix":
		field, err := requireAttr(args, 0)
		if err != nil {
			return queryast.Query{}, err
		}
		if len(args) < 2 {
			return queryast.Query{}, fmt.Errorf("querylang: %s requires a field and a query string", op)
		}
		text, err := requireAttr(args, 1)
		if err != nil {
			return queryast.Query{}, err
		}
		q := queryast.FTSQuery{Kind: ftsKind(op), Field: field}
		if op == "matchPrefix" {
			q.Prefix = text
		} else {
			q.Query = text
		}
		return queryast.FTS(q), nil

	default:
		return queryast.Query{}, fmt.Errorf("querylang: unknown operator %q", op)
	}
}

func simpleKind(op string) queryast.SimpleKind {
	switch op {
	case "eq":
		return queryast.OpEq
	case "neq":
		return queryast.OpNeq
	case "gt":
		return queryast.OpGt
	case "gte":
		return queryast.OpGte
	case "lt":
		return queryast.OpLt
	case "lte":
		return queryast.OpLte
	case "like":
		return queryast.OpLike
	case "regex":
		return queryast.OpRegex
	case "contains":
		return queryast.OpContains
	case "in":
		return queryast.OpIn
	case "containsAll":
		return queryast.OpContainsAll
	case "containsAny":
		return queryast.OpContainsAny
	default:
		return ""
	}
}

func ftsKind(op string) queryast.FTSKind {
	switch op {
	case "match":
		return queryast.FTSMatch
	case "matchPhrase":
		return queryast.FTSMatchPhrase
	default:
		return queryast.FTSMatchPrefix
	}
}

// requireAttr reads args[i] as a bare attribute/string token (symbol,
// keyword, or string all resolve the same way: a dotted name or raw
// text).
func requireAttr(args []edn.Node, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("querylang: missing argument %d", i)
	}
	return symbolOrKeyword(&args[i])
}

func symbolOrKeyword(n *edn.Node) (string, error) {
	switch n.Type {
	case edn.NodeSymbol, edn.NodeKeyword, edn.NodeString:
		return n.Value, nil
	default:
		return "", fmt.Errorf("querylang: expected a name, got %s", n.String())
	}
}

func toValue(n *edn.Node) (value.Value, error) {
	switch n.Type {
	case edn.NodeString:
		return n.Value, nil
	case edn.NodeSymbol, edn.NodeKeyword:
		return n.Value, nil
	case edn.NodeInt:
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("querylang: invalid int %q: %w", n.Value, err)
		}
		return i, nil
	case edn.NodeFloat:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("querylang: invalid float %q: %w", n.Value, err)
		}
		return f, nil
	case edn.NodeBool:
		return n.Value == "true", nil
	case edn.NodeNil:
		return nil, nil
	default:
		return nil, fmt.Errorf("querylang: unsupported value %s", n.String())
	}
}
