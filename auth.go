package main

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

const errInvalidAPIKey = "Invalid API key"

// Authenticator decides whether a presented credential is allowed.
type Authenticator interface {
	Verify(credential string) bool
}

// KeyRing accepts any of a set of static API keys. Comparison is exact string
// equality. The set can be replaced while the server runs.
type KeyRing struct {
	keys atomic.Pointer[map[string]struct{}]
}

func NewKeyRing(keys ...string) *KeyRing {
	r := &KeyRing{}
	r.Replace(keys)
	return r
}

// Replace swaps the accepted key set. Empty keys are ignored.
func (r *KeyRing) Replace(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	r.keys.Store(&set)
}

func (r *KeyRing) Len() int {
	return len(*r.keys.Load())
}

func (r *KeyRing) Verify(credential string) bool {
	if credential == "" {
		return false
	}
	_, ok := (*r.keys.Load())[credential]
	return ok
}

// credential returns the first non-empty API key found at locs.
func credential(c *fiber.Ctx, locs []keyLocation) string {
	for _, loc := range locs {
		var v string
		switch loc.In {
		case "header":
			v = c.Get(loc.Name)
		case "query":
			v = c.Query(loc.Name)
		case "cookie":
			v = c.Cookies(loc.Name)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// requireAPIKey returns middleware rejecting requests whose credential, read
// from locs in order, is not accepted by auth.
func requireAPIKey(auth Authenticator, locs []keyLocation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := loggerFrom(c)
		if !auth.Verify(credential(c, locs)) {
			logger.Warning(ComponentAuth, "Request did not present a valid API key")
			logger.RespondWith(fiber.StatusUnauthorized)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": errInvalidAPIKey})
		}
		logger.Success(ComponentAuth, "Security check passed")
		return c.Next()
	}
}
