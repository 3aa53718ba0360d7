// Package docs registers the OpenAPI document served at /docs/doc.json.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "Season Pass Manager"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Returns API name, version, status, and the active sync store driver.",
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "API root info",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/health": {
            "get": {
                "description": "Returns basic health status and timestamp.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/health/store": {
            "get": {
                "description": "Pings the configured sync store driver.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Sync store health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/health/cache": {
            "get": {
                "description": "Returns in-memory schedule cache statistics (active keys, expired keys).",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Cache health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/sync/meta": {
            "post": {
                "description": "Returns existence, server timestamp and size of the backup stored for a key. Never returns the payload.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Sync metadata",
                "parameters": [{"description": "Access key", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/syncproto.KeyRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/syncproto.Meta"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/sync/pull": {
            "post": {
                "description": "Returns the full stored backup for a key, or a null backup when none exists.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Pull backup",
                "parameters": [{"description": "Access key", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/syncproto.KeyRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/syncproto.PullResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/sync/push": {
            "post": {
                "description": "Stores a full backup for a key. The server stamps the update time; last write wins.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Push backup",
                "parameters": [{"description": "Access key and serialized backup", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/syncproto.PushRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/syncproto.PushResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/schedule": {
            "get": {
                "description": "Fetches a team's home games from ESPN, falling back to Ticketmaster. Responses are cached with ETag support.",
                "produces": ["application/json"],
                "tags": ["schedule"],
                "summary": "Team home schedule",
                "parameters": [
                    {"enum": ["nhl", "nba", "nfl", "mlb", "mls", "wnba", "epl"], "type": "string", "description": "League id", "name": "leagueId", "in": "query", "required": true},
                    {"type": "string", "description": "Team id or abbreviation key", "name": "teamId", "in": "query"},
                    {"type": "string", "description": "Team display name", "name": "teamName", "in": "query"},
                    {"type": "string", "description": "Team abbreviation", "name": "teamAbbreviation", "in": "query"},
                    {"type": "string", "description": "IANA time zone for display fields (default UTC)", "name": "tz", "in": "query"},
                    {"type": "boolean", "description": "Drop the cached schedule and fetch again", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ScheduleResponse"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "respond.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/respond.ErrorBody"}
            }
        },
        "syncproto.KeyRequest": {
            "type": "object",
            "required": ["key"],
            "properties": {"key": {"type": "string", "minLength": 8, "maxLength": 200}}
        },
        "syncproto.PushRequest": {
            "type": "object",
            "required": ["key", "backupJson"],
            "properties": {
                "key": {"type": "string", "minLength": 8, "maxLength": 200},
                "backupJson": {"type": "string", "minLength": 2}
            }
        },
        "syncproto.Meta": {
            "type": "object",
            "properties": {
                "exists": {"type": "boolean"},
                "serverUpdatedAtISO": {"type": "string"},
                "sizeBytes": {"type": "integer"}
            }
        },
        "syncproto.Backup": {
            "type": "object",
            "properties": {
                "serverUpdatedAtISO": {"type": "string"},
                "backupJson": {"type": "string"}
            }
        },
        "syncproto.PullResponse": {
            "type": "object",
            "properties": {"backup": {"$ref": "#/definitions/syncproto.Backup"}}
        },
        "syncproto.PushResponse": {
            "type": "object",
            "properties": {"serverUpdatedAtISO": {"type": "string"}}
        },
        "model.Game": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "date": {"type": "string"},
                "month": {"type": "string"},
                "day": {"type": "string"},
                "opponent": {"type": "string"},
                "opponentLogo": {"type": "string"},
                "venueName": {"type": "string"},
                "time": {"type": "string"},
                "ticketStatus": {"type": "string"},
                "isPaid": {"type": "boolean"},
                "gameNumber": {"type": "integer"},
                "type": {"type": "string", "enum": ["Preseason", "Regular", "Playoff"]},
                "dateTimeISO": {"type": "string"}
            }
        },
        "handler.ScheduleResponse": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/model.Game"}},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "2.0.0",
	Host:             "localhost:8787",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Season Pass Manager Sync API",
	Description:      "Cloud backup store for season pass data plus a cached team schedule proxy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
