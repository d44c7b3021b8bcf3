package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Library Admin API",
        "description": "Reading room student administration",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Admin login"},
        {"name": "Students", "description": "Admissions, lifecycle and register export"},
        {"name": "Documents", "description": "Signed identity-document downloads"},
        {"name": "Reports", "description": "Dashboard and aggregate counters"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List active students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sheet_no", "in": "query", "type": "string"},
                    {"name": "admission_month", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Admit a student",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "name", "in": "formData", "required": true, "type": "string"},
                    {"name": "guardian_name", "in": "formData", "required": true, "type": "string"},
                    {"name": "phone", "in": "formData", "required": true, "type": "string"},
                    {"name": "address", "in": "formData", "type": "string"},
                    {"name": "shift", "in": "formData", "type": "string"},
                    {"name": "sheet_no", "in": "formData", "type": "string"},
                    {"name": "admission_month", "in": "formData", "type": "string"},
                    {"name": "fee", "in": "formData", "type": "string"},
                    {"name": "aadhaar_no", "in": "formData", "type": "string"},
                    {"name": "document", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Removed student restored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/removed": {
            "get": {
                "tags": ["Students"],
                "summary": "List removed students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/export": {
            "get": {
                "tags": ["Students"],
                "summary": "Export the active register",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Register file"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Edit student",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Remove student (kept for restore)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/restore": {
            "post": {
                "tags": ["Students"],
                "summary": "Restore a removed student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/permanent": {
            "delete": {
                "tags": ["Students"],
                "summary": "Permanently delete student and document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/document": {
            "get": {
                "tags": ["Documents"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No document on file"}
                }
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a document by signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Document file"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Aggregate report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "guardian_name": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "shift": {"type": "string"},
                "sheet_no": {"type": "string"},
                "admission_month": {"type": "string"},
                "fee_amount": {"type": "number"},
                "aadhaar_no": {"type": "string"},
                "admission_date": {"type": "string"},
                "active": {"type": "boolean"},
                "document_file": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ReportSummary": {
            "type": "object",
            "properties": {
                "active_students": {"type": "integer"},
                "inactive_students": {"type": "integer"},
                "total_fees": {"type": "number"},
                "generated_at": {"type": "string"}
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
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
