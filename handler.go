package main

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	pathStatus   = "/status"
	pathStore    = "/store"
	pathRetrieve = "/retrieve"
	pathOpenAPI  = "/openapi.json"
)

const (
	errNotJSON       = "Request must be JSON"
	errNotObject     = "Request body must be a JSON object"
	errDataCorrupted = "Data file corrupted"
	msgStored        = "Data stored successfully"
)

type handlers struct {
	store       Store
	environment string
	timestamp   string
	// required lists the body fields POST /store must carry.
	required []string
	// filters lists the query parameters GET /retrieve filters on.
	filters []string
}

func newHandlers(store Store, cfg *Config, contract *Contract) *handlers {
	return &handlers{
		store:       store,
		environment: cfg.Environment,
		timestamp:   cfg.Timestamp,
		required:    contract.RequiredFields(pathStore, fiber.MethodPost),
		filters:     contract.QueryParameters(pathRetrieve, fiber.MethodGet),
	}
}

// status reports whether the data file is readable and how many entries it
// holds.
func (h *handlers) status(c *fiber.Ctx) error {
	logger := loggerFrom(c)

	entries, err := h.store.LoadAll()
	if err != nil {
		logger.Error(ComponentStore, err.Error())
		logger.RespondWith(fiber.StatusInternalServerError)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "ERROR",
			"message": err.Error(),
		})
	}

	logger.RespondWith(fiber.StatusOK)
	return c.JSON(fiber.Map{
		"status":       "OK",
		"environment":  h.environment,
		"data_entries": len(entries),
	})
}

// storeEntry validates the posted object, stamps it and appends it.
func (h *handlers) storeEntry(c *fiber.Ctx) error {
	logger := loggerFrom(c)

	if !isJSON(c.Get(fiber.HeaderContentType)) {
		return validationError(c, logger, errNotJSON)
	}

	var body Entry
	if err := decodeJSON(c.Body(), &body); err != nil || body == nil {
		return validationError(c, logger, errNotObject)
	}

	if missing := missingFields(body, h.required); len(missing) > 0 {
		return validationError(c, logger, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")))
	}
	logger.Success(ComponentValidator, "Request passed all validation rules")

	body["timestamp"] = h.timestamp
	count, err := h.store.Append(body)
	if err != nil {
		return storeError(c, logger, err.Error())
	}

	logger.Success(ComponentStore, fmt.Sprintf("Stored entry %d", count-1))
	logger.RespondWith(fiber.StatusCreated)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": msgStored,
		"id":      count - 1,
	})
}

// retrieve returns the entries matching every filter present in the query.
func (h *handlers) retrieve(c *fiber.Ctx) error {
	logger := loggerFrom(c)

	entries, err := h.store.LoadAll()
	if err != nil {
		if IsCorrupt(err) {
			logger.Error(ComponentStore, err.Error())
			return storeError(c, logger, errDataCorrupted)
		}
		return storeError(c, logger, err.Error())
	}

	filters := h.queryFilters(c)
	results := make([]any, 0, len(entries))
	for _, e := range entries {
		if matches(e, filters) {
			results = append(results, e)
		}
	}

	logger.Success(ComponentStore, fmt.Sprintf("Found %d of %d entries", len(results), len(entries)))
	logger.RespondWith(fiber.StatusOK)
	return c.JSON(fiber.Map{
		"count":   len(results),
		"results": results,
	})
}

// openAPI serves the API contract.
func openAPI(contract *Contract) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loggerFrom(c).RespondWith(fiber.StatusOK)
		return c.JSON(contract.Document())
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// validationError logs the rejection and responds with 400.
func validationError(c *fiber.Ctx, logger *Logger, errMsg string) error {
	logger.Warning(ComponentValidator, "Request did not pass the validation rules")
	logger.Error(ComponentValidator, errMsg)
	logger.RespondWith(fiber.StatusBadRequest)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errMsg})
}

// storeError logs a storage failure and responds with 500.
func storeError(c *fiber.Ctx, logger *Logger, errMsg string) error {
	logger.Error(ComponentStore, errMsg)
	logger.RespondWith(fiber.StatusInternalServerError)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errMsg})
}

// isJSON accepts application/json and any +json media type.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == fiber.MIMEApplicationJSON || strings.HasSuffix(mt, "+json")
}

// missingFields returns the names in required that body lacks. Only key
// presence is checked.
func missingFields(body Entry, required []string) []string {
	var missing []string
	for _, field := range required {
		if _, ok := body[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// queryFilters collects the filter parameters present in the request. A
// parameter given with an empty value still filters.
func (h *handlers) queryFilters(c *fiber.Ctx) map[string]string {
	args := c.Context().QueryArgs()
	filters := make(map[string]string, len(h.filters))
	for _, key := range h.filters {
		if args.Has(key) {
			filters[key] = string(args.Peek(key))
		}
	}
	return filters
}

// matches reports whether every filter equals the entry's field. Values are
// compared as strings without coercion, so a non-string field never matches.
// An element that is not an object only passes when there are no filters.
func matches(v any, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	e, ok := v.(Entry)
	if !ok {
		return false
	}
	for key, want := range filters {
		got, ok := e[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
