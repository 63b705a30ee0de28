// Package docs holds the hand-maintained swagger spec for the thin
// HTTP surface in internal/handler, registered with swaggo/swag the
// way `swag init` output is normally committed, so gin-swagger has a
// spec to serve without a code-generation step in this build.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/clarify": {
            "post": {
                "summary": "Check a user intent for vagueness",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/searches": {
            "get": {
                "summary": "List the most recently submitted searches",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "summary": "Submit a new search",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/v1/searches/{id}": {
            "get": {
                "summary": "Poll a search's status and running counters",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/searches/{id}/results": {
            "get": {
                "summary": "Fetch the relevant messages and stats for a completed search",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/searches/{id}/feedback": {
            "post": {
                "summary": "Leave feedback on a search's synthesized verdict",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/searches/{id}/messages/feedback": {
            "post": {
                "summary": "Leave feedback on one message's relevance verdict",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported swagger metadata, matching the shape
// `swag init` writes into docs/docs.go.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "caaa-research engine API",
	Description:      "Thin HTTP surface over the archive search-and-analysis pipeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
