package dlock

import (
	"time"
	"unicode"
	"unicode/utf8"
)

const maxResourceLen = 512

func validateResource(resource string) error {
	if resource == "" {
		return invalidArgument("resource must not be empty")
	}
	if len(resource) > maxResourceLen {
		return invalidArgument("resource exceeds %d bytes", maxResourceLen)
	}
	if !utf8.ValidString(resource) {
		return invalidArgument("resource %q is not valid utf-8", resource)
	}
	for _, r := range resource {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return invalidArgument("resource %q contains whitespace or control characters", resource)
		}
	}
	return nil
}

func validateTTL(ttl time.Duration) error {
	// the store keeps expiries with millisecond precision
	if ttl < time.Millisecond {
		return invalidArgument("ttl %s is below 1ms", ttl)
	}
	return nil
}

func validateToken(token string) error {
	if token == "" {
		return invalidArgument("token must not be empty")
	}
	return nil
}
