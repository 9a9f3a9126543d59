// Package catalog holds the static table of API endpoints. Every entry has a
// stable identifier that API keys reference in their permission sets, and
// the server registers each entry's exact method and path pattern.
package catalog

import (
	"fmt"
	"strings"
)

// Unknown is the identifier of every /api route without a catalogue entry.
// A key must list it explicitly to reach such a route.
const Unknown = "unknown"

// Endpoint categories.
const (
	CategoryUsers      = "Users"
	CategoryArticles   = "Articles"
	CategoryLists      = "Lists"
	CategoryCategories = "Categories"
	CategoryAdmin      = "Admin"
	CategoryDatabase   = "Database"
	CategoryMonitoring = "Monitoring"
	CategoryAuth       = "Auth"
	CategoryFavorites  = "Favorites"
)

// Endpoint describes one logical operation of the API.
type Endpoint struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Group is a category with its endpoints, in catalogue order.
type Group struct {
	Category  string     `json:"category"`
	Endpoints []Endpoint `json:"endpoints"`
}

// publicPaths bypass the gate entirely.
var publicPaths = map[string]bool{
	"/api/docs/data": true,
}

var byID map[string]Endpoint

func init() {
	byID = make(map[string]Endpoint, len(endpoints))
	routes := make(map[string]string, len(endpoints))
	for _, e := range endpoints {
		if _, dup := byID[e.ID]; dup {
			panic("catalog: duplicate endpoint id " + e.ID)
		}
		route := e.Method + " " + e.Path
		if other, dup := routes[route]; dup {
			panic(fmt.Sprintf("catalog: %s and %s share route %s", other, e.ID, route))
		}
		byID[e.ID] = e
		routes[route] = e.ID
	}
}

// All returns a copy of the catalogue.
func All() []Endpoint {
	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	return out
}

// Lookup returns the endpoint with the given identifier.
func Lookup(id string) (Endpoint, bool) {
	e, ok := byID[id]
	return e, ok
}

// Known reports whether id may appear in a permission set. The Unknown
// sentinel is accepted so operators can open unmapped routes deliberately.
func Known(id string) bool {
	if id == Unknown {
		return true
	}
	_, ok := byID[id]
	return ok
}

// Validate returns an error naming every identifier that is not Known.
func Validate(ids []string) error {
	var bad []string
	for _, id := range ids {
		if !Known(id) {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("unknown endpoint ids: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Grouped returns the catalogue grouped by category. Categories appear in
// the order of their first endpoint.
func Grouped() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range endpoints {
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, Group{Category: e.Category})
		}
		groups[i].Endpoints = append(groups[i].Endpoints, e)
	}
	return groups
}

// IsPublic reports whether path is served without any credential check.
func IsPublic(path string) bool {
	return publicPaths[path]
}

// PublicPaths returns the paths that bypass the gate.
func PublicPaths() []string {
	out := make([]string, 0, len(publicPaths))
	for p := range publicPaths {
		out = append(out, p)
	}
	return out
}
