package main

import (
	"log"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type route struct {
	method  string
	path    string
	handler fiber.Handler
}

// RegisterRoutes mounts the endpoints on app. Operations the contract marks
// as secured get the API key guard in front of their handler.
func RegisterRoutes(app *fiber.App, contract *Contract, h *handlers, auth Authenticator) {
	routes := []route{
		{fiber.MethodGet, pathStatus, h.status},
		{fiber.MethodPost, pathStore, h.storeEntry},
		{fiber.MethodGet, pathRetrieve, h.retrieve},
		{fiber.MethodGet, pathOpenAPI, openAPI(contract)},
	}

	endpoints := make([]string, 0, len(routes))
	for _, r := range routes {
		chain := []fiber.Handler{r.handler}
		label := strings.ToUpper(r.method) + " " + r.path
		if contract.Secured(r.path, r.method) {
			guard := requireAPIKey(auth, contract.KeyLocations(r.path, r.method))
			chain = append([]fiber.Handler{guard}, chain...)
			label += " (api key)"
		}
		app.Add(r.method, r.path, chain...)
		endpoints = append(endpoints, label)
	}

	sort.Strings(endpoints)
	log.Println("Available endpoints:")
	for _, e := range endpoints {
		log.Printf("  %s", e)
	}
}
