// Package conditional provides the comparison evaluator behind CONDITIONAL nodes.
package conditional

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/template"
)

// Operator is a supported comparison.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorContains,
}

var (
	// ErrInvalidConfig is returned when left_value, right_value or operator are unusable.
	ErrInvalidConfig = errors.New("invalid conditional config")

	// ErrTypeMismatch is returned when operands cannot be compared with the operator.
	ErrTypeMismatch = errors.New("conditional type mismatch")
)

// Config is the typed configuration of a CONDITIONAL node.
type Config struct {
	LeftValue  any      `json:"left_value"`
	Operator   Operator `json:"operator"`
	RightValue any      `json:"right_value"`
}

// Condition records the resolved comparison.
type Condition struct {
	Left     any      `json:"left"`
	Operator Operator `json:"operator"`
	Right    any      `json:"right"`
	Result   bool     `json:"result"`
}

// Result is the output of a CONDITIONAL node. Only Passthrough flows downstream.
type Result struct {
	Branch      string    `json:"branch"`
	Condition   Condition `json:"condition"`
	Passthrough any       `json:"passthrough"`
}

// ParseConfig validates a raw node configuration. A key that is present with a
// null value is accepted; an absent key is not.
func ParseConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		return Config{}, fmt.Errorf("%w: config must be an object", ErrInvalidConfig)
	}

	left, ok := raw["left_value"]
	if !ok {
		return Config{}, fmt.Errorf("%w: missing left_value", ErrInvalidConfig)
	}

	right, ok := raw["right_value"]
	if !ok {
		return Config{}, fmt.Errorf("%w: missing right_value", ErrInvalidConfig)
	}

	op, ok := raw["operator"].(string)
	if !ok {
		return Config{}, fmt.Errorf("%w: missing operator", ErrInvalidConfig)
	}

	if !slices.Contains(Operators, Operator(op)) {
		return Config{}, fmt.Errorf("%w: unsupported operator %q", ErrInvalidConfig, op)
	}

	return Config{LeftValue: left, Operator: Operator(op), RightValue: right}, nil
}

// Evaluate resolves both operands against input and applies the operator.
func Evaluate(cfg Config, input any) (Condition, error) {
	left := ResolveOperand(cfg.LeftValue, input)
	right := ResolveOperand(cfg.RightValue, input)

	cond := Condition{Left: left, Operator: cfg.Operator, Right: right}

	switch cfg.Operator {
	case OperatorEquals:
		cond.Result = strictEqual(left, right)
	case OperatorNotEquals:
		cond.Result = !strictEqual(left, right)
	case OperatorGreaterThan, OperatorLessThan:
		l, lok := asNumber(left)
		r, rok := asNumber(right)

		if !lok || !rok {
			return cond, fmt.Errorf("%w: %s requires numeric left and right values", ErrTypeMismatch, cfg.Operator)
		}

		if cfg.Operator == OperatorGreaterThan {
			cond.Result = l > r
		} else {
			cond.Result = l < r
		}
	case OperatorContains:
		switch l := left.(type) {
		case string:
			cond.Result = strings.Contains(l, displayString(right))
		case []any:
			cond.Result = slices.ContainsFunc(l, func(item any) bool { return strictEqual(item, right) })
		default:
			return cond, fmt.Errorf("%w: contains requires left_value to be a string or an array", ErrTypeMismatch)
		}
	default:
		return cond, fmt.Errorf("%w: unsupported operator %q", ErrInvalidConfig, cfg.Operator)
	}

	return cond, nil
}

// Branch evaluates the condition and wraps the outcome with the input passthrough.
func Branch(cfg Config, input any) (Result, error) {
	cond, err := Evaluate(cfg, input)
	if err != nil {
		return Result{}, err
	}

	branch := models.BranchFalse
	if cond.Result {
		branch = models.BranchTrue
	}

	return Result{Branch: branch, Condition: cond, Passthrough: input}, nil
}

// ResolveOperand turns a configured operand into a comparable value. Strings
// starting with "$." are field paths into input; "true", "false" and "null"
// become literals; numeric strings become numbers. Other values pass through.
func ResolveOperand(raw any, input any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}

	trimmed := strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(trimmed, "$."):
		return pathValue(input, trimmed)
	case trimmed == "true":
		return true
	case trimmed == "false":
		return false
	case trimmed == "null":
		return nil
	}

	if n, ok := parseNumber(trimmed); ok {
		return n
	}

	return s
}

// Undefined is the value of a field path that does not exist in the input.
// It differs from the null literal: only Undefined equals Undefined.
var Undefined = undefined{}

type undefined struct{}

func (undefined) String() string {
	return "undefined"
}

func (undefined) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func pathValue(input any, path string) any {
	var segments []string

	for _, part := range strings.Split(path[2:], ".") {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}

	value, ok := template.Lookup(input, segments)
	if !ok {
		return Undefined
	}

	return value
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}

	return n, true
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		return parseNumber(strings.TrimSpace(v))
	default:
		return 0, false
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}

// strictEqual never coerces between types: 1 and "1" differ.
func strictEqual(a, b any) bool {
	if isNumeric(a) && isNumeric(b) {
		x, _ := asNumber(a)
		y, _ := asNumber(b)

		return x == y
	}

	if a == Undefined || b == Undefined {
		return a == b
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	return reflect.DeepEqual(a, b)
}

func displayString(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case undefined:
		return v.String()
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		if isNumeric(v) {
			n, _ := asNumber(v)

			return strconv.FormatFloat(n, 'f', -1, 64)
		}

		return template.Stringify(v)
	}
}
