package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Default returns the process wide validator. It is safe for concurrent use
// and caches struct metadata between calls.
func Default() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct validates the `validate` tags of obj.
func Struct(obj interface{}) error {
	return Default().Struct(obj)
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return Default().Var(s, "required,email") == nil
}
