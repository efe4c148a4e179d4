package errs

import (
	"errors"
	"fmt"
)

// Error kinds used across the evaluation pipeline. Callers classify with
// errors.Is; every kind is produced by the matching constructor below so the
// chain always carries the sentinel.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrProvider       = errors.New("embedding provider error")
	ErrCache          = errors.New("cache error")
	ErrInitialization = errors.New("initialization error")
	ErrState          = errors.New("invalid state")
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Providerf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}

func Cachef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCache, fmt.Sprintf(format, args...))
}

func Initializationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInitialization, fmt.Sprintf(format, args...))
}

func Statef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

// WrapProvider keeps the original cause in the chain while tagging it as a
// provider failure.
func WrapProvider(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProvider, err)
}
