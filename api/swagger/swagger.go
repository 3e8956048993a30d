package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Timetable scheduling service: generates conflict-free school schedules from approved teaching plans.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scheduling", "description": "Scheduling runs and rule sets"},
        {"name": "Timetables", "description": "Class and teacher timetable views"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/scheduling/runs": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Start a scheduling run",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExecuteSchedulingRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/runs/{id}": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Scheduling run status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/runs/{id}/cancel": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Cancel a scheduling run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/rules": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "List scheduling rule sets",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/rules/{id}": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Scheduling rule set detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown rule set", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/classes/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Weekly timetable for a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYear", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/classes/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export a class timetable as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYear", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/timetables/teachers/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Weekly timetable for a teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYear", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ExecuteSchedulingRequest": {
            "type": "object",
            "required": ["academicYear", "semester"],
            "properties": {
                "academicYear": {"type": "string"},
                "semester": {"type": "integer"},
                "classIds": {"type": "array", "items": {"type": "string"}, "description": "empty schedules every active class"},
                "rulesId": {"type": "string"},
                "preserveExisting": {"type": "boolean"},
                "algorithm": {"$ref": "#/definitions/AlgorithmOptions"}
            }
        },
        "AlgorithmOptions": {
            "type": "object",
            "properties": {
                "maxIterations": {"type": "integer"},
                "timeLimitSeconds": {"type": "integer"},
                "enableLocalOptimization": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
