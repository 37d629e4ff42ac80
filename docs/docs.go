// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Create an account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/habits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "List live habits, active first",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Create a habit",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/habits/sync": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Habits changed since last_sync, tombstones included",
                "parameters": [{"type": "string", "in": "query", "name": "last_sync"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/habits/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Partially update a habit with optimistic locking",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Soft-delete a habit",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/checkins": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["checkins"],
                "summary": "Check-ins of a habit, oldest first",
                "parameters": [
                    {"type": "string", "in": "query", "name": "habit_id", "required": true},
                    {"type": "string", "in": "query", "name": "from"},
                    {"type": "string", "in": "query", "name": "to"},
                    {"type": "string", "in": "query", "name": "tz"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["checkins"],
                "summary": "Record a check-in",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}, "422": {"description": "Habit archived"}}
            }
        },
        "/checkins/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["checkins"],
                "summary": "Undo a check-in",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/analytics/overview": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["analytics"],
                "summary": "Report card for every live habit",
                "parameters": [{"type": "string", "in": "query", "name": "tz"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/analytics/habits/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["analytics"],
                "summary": "Streaks, consistency and goal progress of one habit",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"type": "string", "in": "query", "name": "tz"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/analytics/habits/{id}/calendar": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["analytics"],
                "summary": "Day cells for a date range, or a week-aligned heatmap",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"type": "string", "in": "query", "name": "from"},
                    {"type": "string", "in": "query", "name": "to"},
                    {"type": "integer", "in": "query", "name": "weeks"},
                    {"type": "string", "in": "query", "name": "tz"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/stats/weekly": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Per-habit completion over a date range",
                "parameters": [
                    {"type": "string", "in": "query", "name": "start_date"},
                    {"type": "string", "in": "query", "name": "end_date"},
                    {"type": "string", "in": "query", "name": "tz"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "definitions": {
        "credentials": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Tracker API",
	Description:      "Habit tracking with streaks, calendars and progress analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
