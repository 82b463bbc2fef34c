// Package swagger registers the OpenAPI document served by the swagger UI.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/upload": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Create a new session for uploading",
                "parameters": [
                    {
                        "description": "file metadata and declared length",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "filename": {"type": "string"},
                                "salt": {"type": "array", "items": {"type": "integer"}},
                                "content_length": {"type": "integer"},
                                "expires_at": {"type": "integer"}
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {"session_token": {"type": "string"}}
                        }
                    },
                    "400": {"description": "Bad Request"},
                    "422": {"description": "File too large"}
                }
            }
        },
        "/upload/{session_token}": {
            "get": {
                "tags": ["upload"],
                "summary": "Upload file content over a websocket",
                "description": "Block-oriented duplex exchange. Server announces {code:101, block:N}; client answers with one binary block. Terminal codes: 200, 401, 404, 414.",
                "parameters": [
                    {"type": "string", "name": "session_token", "in": "path", "required": true}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/{uuid}": {
            "get": {
                "produces": ["text/html"],
                "tags": ["files"],
                "summary": "Get HTML for file download and decryption",
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Delete a file",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/{uuid}/meta": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Get file metadata",
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/{uuid}/raw": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Get raw file data",
                "description": "Plain GET streams the blob; a websocket upgrade switches to {seek, read} ranged requests.",
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/{uuid}/expire": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Get file expiration",
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Set file expiration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"type": "string", "name": "uuid", "in": "path", "required": true},
                    {
                        "description": "expiration timestamp, negative for indefinite",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {"expires_at": {"type": "integer"}}
                        }
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Aggregate file count and disk usage",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "head": {
                "tags": ["admin"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/max-filesize": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Get the global size cap",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/max-filesize/{value}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Set a new global size cap",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "value", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "fbain API",
	Description:      "Anonymous end-to-end encrypted file hosting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
