package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrUnknownProvider is returned for references to unregistered providers.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrEmptySecret is returned by a strict Resolver when a provider yields "".
	ErrEmptySecret = errors.New("secret: empty value")
)
