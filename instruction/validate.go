package instruction

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/oliveagle/jsonpath"
	"github.com/spf13/cast"
)

func validateCalculation(config map[string]any) error {
	v, ok := config["expression"]
	if !ok {
		return nil
	}
	expression, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("expression should be a string")
	}
	if len(strings.TrimSpace(expression)) == 0 {
		return nil
	}
	if _, err := goja.Compile("expression", expression, false); err != nil {
		return fmt.Errorf("expression does not compile: %w", err)
	}
	return nil
}

func validateCondition(config map[string]any) error {
	if v, ok := config["rejectOnFalse"]; ok {
		if _, err := cast.ToBoolE(v); err != nil {
			return fmt.Errorf("rejectOnFalse should be a boolean")
		}
	}
	v, ok := config["operand"]
	if !ok {
		return nil
	}
	operand, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("operand should be a string")
	}
	path := strings.TrimSuffix(strings.TrimPrefix(operand, "{"), "}")
	if _, err := jsonpath.Compile(path); err != nil {
		return fmt.Errorf("operand should be a valid jsonpath expression")
	}
	return nil
}

func validateParallel(config map[string]any) error {
	v, ok := config["mode"]
	if !ok {
		return nil
	}
	mode, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("mode should be a string")
	}
	switch mode {
	case "all", "any", "race":
		return nil
	}
	return fmt.Errorf("unknown parallel mode %s", mode)
}

func validateDelay(config map[string]any) error {
	v, ok := config["duration"]
	if !ok {
		return nil
	}
	d, err := cast.ToInt64E(v)
	if err != nil {
		return fmt.Errorf("duration should be an integer number of milliseconds")
	}
	if d < 0 {
		return fmt.Errorf("duration can not be negative")
	}
	return nil
}

func validateCollection(config map[string]any) error {
	v, ok := config["collection"]
	if !ok {
		return nil
	}
	name, err := cast.ToStringE(v)
	if err != nil || len(name) == 0 {
		return fmt.Errorf("collection should be a non empty string")
	}
	return nil
}
