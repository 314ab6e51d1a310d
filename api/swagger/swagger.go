package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Station Compliance API",
        "description": "Statutory document sync and lifecycle engine for fuel stations.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Statutory", "description": "Station statutory documents, filters and register export"},
        {"name": "Notifications", "description": "Dashboard notification feed"},
        {"name": "Ops", "description": "Health, readiness and instrumentation"}
    ],
    "paths": {
        "/statutory/stations/{stationId}/documents": {
            "get": {
                "tags": ["Statutory"],
                "summary": "Fetch a station's statutory documents",
                "description": "Reads from the authority when reachable, otherwise from the local dataset and pending offline changes.",
                "parameters": [
                    {"name": "stationId", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["all", "Compliant", "ExpiringSoon", "Expired", "UnderReview"]},
                    {"name": "documentType", "in": "query", "type": "string", "enum": ["all", "BusinessLicense", "EnvironmentalPermit", "FireSafetyCertificate", "FuelRetailLicense", "HealthPermit", "InsurancePolicy", "TaxCertificate"]},
                    {"name": "paymentStatus", "in": "query", "type": "string", "enum": ["all", "Paid", "Pending", "Overdue"]},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/filters": {
            "put": {
                "tags": ["Statutory"],
                "summary": "Replace the active document filters",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DocumentFilters"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/documents": {
            "post": {
                "tags": ["Statutory"],
                "summary": "Create a statutory document",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DocumentInput"}}
                ],
                "responses": {
                    "200": {"description": "Mutation outcome", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/documents/{id}": {
            "put": {
                "tags": ["Statutory"],
                "summary": "Update a statutory document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DocumentInput"}}
                ],
                "responses": {
                    "200": {"description": "Mutation outcome", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Statutory"],
                "summary": "Delete a statutory document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Mutation outcome", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            }
        },
        "/statutory/documents/{id}/renew": {
            "post": {
                "tags": ["Statutory"],
                "summary": "Renew a statutory document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenewDocumentInput"}}
                ],
                "responses": {
                    "200": {"description": "Mutation outcome", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/documents/export": {
            "get": {
                "tags": ["Statutory"],
                "summary": "Export the current document register",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered register", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/connection": {
            "get": {
                "tags": ["Statutory"],
                "summary": "Last authority connection status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statutory/errors/last": {
            "get": {
                "tags": ["Statutory"],
                "summary": "Inspect the last recorded error",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Statutory"],
                "summary": "Clear the last recorded error",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Recent notifications, newest first",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Ops"],
                "summary": "Instrumentation summary (admin)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DocumentFilters": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "documentType": {"type": "string"},
                "paymentStatus": {"type": "string"},
                "search": {"type": "string"}
            }
        },
        "DocumentInput": {
            "type": "object",
            "required": ["type", "title", "authority", "reference", "expiresDate", "paymentStatus", "stationId"],
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string", "maxLength": 200},
                "authority": {"type": "string", "maxLength": 200},
                "reference": {"type": "string", "maxLength": 200},
                "registeredDate": {"type": "string", "format": "date"},
                "issuedDate": {"type": "string", "format": "date"},
                "expiresDate": {"type": "string", "format": "date"},
                "fees": {"type": "number", "minimum": 0},
                "paymentStatus": {"type": "string"},
                "stationId": {"type": "string"},
                "stationName": {"type": "string"},
                "assignee": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "RenewDocumentInput": {
            "type": "object",
            "required": ["newExpiresDate"],
            "properties": {
                "newExpiresDate": {"type": "string", "format": "date"},
                "renewalFees": {"type": "number", "minimum": 0},
                "notes": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
        "MutationEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {"success": {"type": "boolean"}}
                }
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
