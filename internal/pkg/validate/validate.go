package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// One validator shared by every handler; validator.Validate caches struct
// metadata, so a singleton is both the cheap and the intended usage.
var v = validator.New()

// Struct checks s against its `validate` tags and flattens any violations
// into a single error message suitable for a 422 body.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
