package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Validator validates structs using `validate` tags.
// Supported rules: required, min=N, max=N, oneof=a b c.
// min and max bound numbers by value and strings, slices and maps by length.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fmt.Errorf("validate expects a struct, got nil")
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" || !fieldType.IsExported() {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldName(fieldType), err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	for _, rule := range strings.Split(tag, ",") {
		ruleName, arg, _ := strings.Cut(rule, "=")

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "min", "max":
			limit, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("bad %s rule %q", ruleName, arg)
			}
			n, ok := measure(field)
			if !ok {
				continue
			}
			if ruleName == "min" && n < limit {
				return fmt.Errorf("minimum is %s", arg)
			}
			if ruleName == "max" && n > limit {
				return fmt.Errorf("maximum is %s", arg)
			}

		case "oneof":
			if field.Kind() != reflect.String || field.String() == "" {
				continue
			}
			allowed := strings.Fields(arg)
			if !contains(allowed, field.String()) {
				return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
			}
		}
	}

	return nil
}

// measure returns the value compared by min and max
func measure(field reflect.Value) (float64, bool) {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(field.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(field.Uint()), true
	case reflect.Float32, reflect.Float64:
		return field.Float(), true
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return float64(field.Len()), true
	case reflect.Ptr:
		if field.IsNil() {
			return 0, false
		}
		return measure(field.Elem())
	default:
		return 0, false
	}
}

func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return f.Name
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
