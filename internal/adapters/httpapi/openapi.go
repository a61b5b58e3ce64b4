package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
)

// handleOpenAPI renvoie la description OpenAPI de l'API v1.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	ref := func(name string) map[string]any {
		return map[string]any{"$ref": "#/components/schemas/" + name}
	}
	jsonOK := func(schema map[string]any) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{"schema": schema},
			},
		}
	}
	jsonBody := func(schema map[string]any) map[string]any {
		return map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{"schema": schema},
			},
		}
	}
	arrayOf := func(name string) map[string]any {
		return map[string]any{"type": "array", "items": ref(name)}
	}
	pathParam := func(name string) map[string]any {
		return map[string]any{"name": name, "in": "path", "required": true, "schema": map[string]any{"type": "string"}}
	}
	queryParam := func(name string, required bool) map[string]any {
		return map[string]any{"name": name, "in": "query", "required": required, "schema": map[string]any{"type": "string"}}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{"schema": ref("Error")},
		},
	}
	noContent := map[string]any{"description": "No Content"}

	statusEnum := []any{"playing", "completed", "on_hold", "dropped", "plan_to_play", "watched"}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "vnshelf API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error":   map[string]any{"type": "string"},
						"details": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
					},
					"required": []any{"error"},
				},
				"Status": map[string]any{"type": "string", "enum": statusEnum},
				"CatalogRecord": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":             map[string]any{"type": "string", "example": "v17"},
						"title":          map[string]any{"type": "string"},
						"released":       map[string]any{"type": "string"},
						"image":          map[string]any{"type": "object", "nullable": true, "additionalProperties": true},
						"description":    map[string]any{"type": "string"},
						"rating":         map[string]any{"type": "number"},
						"votecount":      map[string]any{"type": "integer"},
						"length_minutes": map[string]any{"type": "integer", "nullable": true},
						"tags":           map[string]any{"type": "array", "items": map[string]any{"type": "object", "additionalProperties": true}},
						"developers":     map[string]any{"type": "array", "items": map[string]any{"type": "object", "additionalProperties": true}},
						"releases":       map[string]any{"type": "array", "items": map[string]any{"type": "object", "additionalProperties": true}},
						"sensitive":      map[string]any{"type": "boolean", "description": "Image explicite ou release 18+."},
					},
					"required": []any{"id", "title"},
				},
				"LibraryEntry": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"catalogId":        map[string]any{"type": "string"},
						"status":           ref("Status"),
						"score":            map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"notes":            map[string]any{"type": "string"},
						"review":           map[string]any{"type": "string"},
						"playTime":         map[string]any{"type": "integer", "minimum": 0, "description": "Minutes"},
						"purchaseLocation": map[string]any{"type": "string"},
						"addedAt":          map[string]any{"type": "integer", "format": "int64", "description": "Epoch ms"},
						"updatedAt":        map[string]any{"type": "integer", "format": "int64", "description": "Epoch ms"},
						"vn":               ref("CatalogRecord"),
					},
					"required": []any{"catalogId", "status", "score", "addedAt", "updatedAt", "vn"},
				},
				"AddEntryRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"catalogId":        map[string]any{"type": "string"},
						"status":           ref("Status"),
						"score":            map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"notes":            map[string]any{"type": "string"},
						"review":           map[string]any{"type": "string"},
						"playTime":         map[string]any{"type": "integer", "minimum": 0},
						"purchaseLocation": map[string]any{"type": "string"},
						"vn":               ref("CatalogRecord"),
					},
					"required": []any{"status"},
				},
				"UpdateEntryRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status":           ref("Status"),
						"score":            map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"notes":            map[string]any{"type": "string"},
						"review":           map[string]any{"type": "string"},
						"playTime":         map[string]any{"type": "integer", "minimum": 0, "nullable": true, "description": "null clears the recorded play time"},
						"purchaseLocation": map[string]any{"type": "string", "description": "empty string clears the location"},
					},
				},
				"PurchaseSource": map[string]any{
					"type":       "object",
					"properties": map[string]any{"name": map[string]any{"type": "string"}},
					"required":   []any{"name"},
				},
				"RefreshJob": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         map[string]any{"type": "string"},
						"state":      map[string]any{"type": "string", "enum": []any{"running", "completed", "failed", "canceled"}},
						"current":    map[string]any{"type": "integer"},
						"total":      map[string]any{"type": "integer"},
						"updated":    map[string]any{"type": "integer"},
						"error":      map[string]any{"type": "string"},
						"startedAt":  map[string]any{"type": "string", "format": "date-time"},
						"finishedAt": map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []any{"id", "state", "current", "total", "updated", "startedAt"},
				},
				"Stats": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"total":          map[string]any{"type": "integer"},
						"byStatus":       map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "integer"}},
						"averageScore":   map[string]any{"type": "number"},
						"playtimeHours":  map[string]any{"type": "number"},
						"topTags":        map[string]any{"type": "array", "items": map[string]any{"type": "object", "additionalProperties": true}},
						"sensitiveCount": map[string]any{"type": "integer"},
					},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"nsfwBlur":        map[string]any{"type": "boolean"},
						"backgroundImage": map[string]any{"type": "string"},
						"language":        map[string]any{"type": "string", "enum": []any{"en", "ja", "ko", "zh"}},
					},
					"additionalProperties": false,
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "SSE (library.*, purchase_source.*, refresh.*, settings.updated)"}}},
			},
			"/api/v1/catalog/search": map[string]any{
				"get": map[string]any{
					"parameters": []any{queryParam("q", true)},
					"responses": map[string]any{
						"200": jsonOK(arrayOf("CatalogRecord")),
						"400": jsonErr,
						"502": jsonErr,
					},
				},
			},
			"/api/v1/catalog/vn/{id}": map[string]any{
				"get": map[string]any{
					"parameters": []any{pathParam("id")},
					"responses": map[string]any{
						"200": jsonOK(ref("CatalogRecord")),
						"404": jsonErr,
						"502": jsonErr,
					},
				},
			},
			"/api/v1/library": map[string]any{
				"get": map[string]any{
					"parameters": []any{queryParam("status", false), queryParam("sort", false)},
					"responses": map[string]any{
						"200": jsonOK(arrayOf("LibraryEntry")),
						"400": jsonErr,
					},
				},
				"post": map[string]any{
					"requestBody": jsonBody(ref("AddEntryRequest")),
					"responses": map[string]any{
						"201": jsonOK(ref("LibraryEntry")),
						"400": jsonErr,
						"404": jsonErr,
						"502": jsonErr,
						"503": jsonErr,
					},
				},
			},
			"/api/v1/library/ranking": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK(arrayOf("LibraryEntry"))}},
			},
			"/api/v1/library/roulette": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK(ref("LibraryEntry")), "404": jsonErr}},
			},
			"/api/v1/library/refresh": map[string]any{
				"post": map[string]any{"responses": map[string]any{"202": jsonOK(ref("RefreshJob")), "409": jsonErr}},
			},
			"/api/v1/library/refresh/{jobId}": map[string]any{
				"get": map[string]any{
					"parameters": []any{pathParam("jobId")},
					"responses":  map[string]any{"200": jsonOK(ref("RefreshJob")), "404": jsonErr},
				},
			},
			"/api/v1/library/refresh/{jobId}/cancel": map[string]any{
				"post": map[string]any{
					"parameters": []any{pathParam("jobId")},
					"responses":  map[string]any{"202": jsonOK(ref("RefreshJob")), "404": jsonErr},
				},
			},
			"/api/v1/library/{id}": map[string]any{
				"parameters": []any{pathParam("id")},
				"get":        map[string]any{"responses": map[string]any{"200": jsonOK(ref("LibraryEntry")), "404": jsonErr}},
				"put": map[string]any{
					"requestBody": jsonBody(ref("UpdateEntryRequest")),
					"responses": map[string]any{
						"200": jsonOK(ref("LibraryEntry")),
						"400": jsonErr,
						"404": jsonErr,
						"503": jsonErr,
					},
				},
				"delete": map[string]any{"responses": map[string]any{"204": noContent, "503": jsonErr}},
			},
			"/api/v1/stats": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK(ref("Stats"))}},
			},
			"/api/v1/purchase-sources": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK(arrayOf("PurchaseSource"))}},
				"post": map[string]any{
					"requestBody": jsonBody(ref("PurchaseSource")),
					"responses": map[string]any{
						"201": jsonOK(ref("PurchaseSource")),
						"400": jsonErr,
						"409": jsonErr,
					},
				},
			},
			"/api/v1/purchase-sources/{name}": map[string]any{
				"parameters": []any{pathParam("name")},
				"put": map[string]any{
					"requestBody": jsonBody(ref("PurchaseSource")),
					"responses": map[string]any{
						"200": map[string]any{"description": "Renamed; entries lists the rewritten library entries."},
						"400": jsonErr,
						"409": jsonErr,
					},
				},
				"delete": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/backup/export": map[string]any{
				"get": map[string]any{
					"parameters": []any{queryParam("status", false)},
					"responses":  map[string]any{"200": jsonOK(arrayOf("LibraryEntry")), "400": jsonErr, "503": jsonErr},
				},
			},
			"/api/v1/backup/import": map[string]any{
				"post": map[string]any{
					"requestBody": jsonBody(arrayOf("LibraryEntry")),
					"responses": map[string]any{
						"200": map[string]any{"description": "Number of imported entries."},
						"400": jsonErr,
						"503": jsonErr,
					},
				},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK(ref("Settings")),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": jsonBody(ref("Settings")),
					"responses": map[string]any{
						"200": jsonOK(ref("Settings")),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, doc)
}
