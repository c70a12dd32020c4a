package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Grading API",
        "description": "Weighted grade computation, class reports, attendance and dashboards",
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
        {"name": "Grades", "description": "Assessments, scores and grade reports"},
        {"name": "Attendance", "description": "Daily attendance marks and rates"},
        {"name": "Dashboard", "description": "Class and institution rollups"},
        {"name": "Reports", "description": "Asynchronous CSV/PDF exports"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "paths": {
        "/assessments": {
            "post": {
                "tags": ["Grades"],
                "summary": "Create assessment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssessmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/assessments": {
            "get": {
                "tags": ["Grades"],
                "summary": "List a class's assessments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scores": {
            "post": {
                "tags": ["Grades"],
                "summary": "Record or replace one score",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid grading input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scores/bulk": {
            "post": {
                "tags": ["Grades"],
                "summary": "Bulk record scores for one assessment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Atomic batch rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/students/{studentId}/final-grade": {
            "get": {
                "tags": ["Grades"],
                "summary": "Student final grade in a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No positively weighted work", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/report-card": {
            "get": {
                "tags": ["Grades"],
                "summary": "Student report card across subjects",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/grade-report": {
            "get": {
                "tags": ["Grades"],
                "summary": "Class grade report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "passThreshold", "in": "query", "type": "number"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a day of attendance marks for a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Class attendance tally",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Student attendance tally",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Institution dashboard across all classes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/classes/{id}": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Class dashboard",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a class report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report through its signed token",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Request, cache and grading counters snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateAssessmentRequest": {
            "type": "object",
            "required": ["classId", "name", "type", "maxScore"],
            "properties": {
                "classId": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["exam", "assignment", "practical", "problem-set", "project", "essay"]},
                "maxScore": {"type": "number"},
                "weight": {"type": "number"},
                "position": {"type": "integer"},
                "dueDate": {"type": "string", "format": "date-time"}
            }
        },
        "RecordScoreRequest": {
            "type": "object",
            "required": ["assessmentId", "studentId", "score"],
            "properties": {
                "assessmentId": {"type": "string"},
                "studentId": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "BulkScoreItem": {
            "type": "object",
            "required": ["studentId", "value"],
            "properties": {
                "studentId": {"type": "string"},
                "value": {"type": "number"}
            }
        },
        "BulkScoreRequest": {
            "type": "object",
            "required": ["assessmentId", "items"],
            "properties": {
                "assessmentId": {"type": "string"},
                "mode": {"type": "string", "enum": ["atomic", "partialOnError"]},
                "items": {"type": "array", "items": {"$ref": "#/definitions/BulkScoreItem"}}
            }
        },
        "AttendanceMark": {
            "type": "object",
            "required": ["studentId", "status"],
            "properties": {
                "studentId": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "LATE", "ABSENT", "EXCUSED"]},
                "notes": {"type": "string"}
            }
        },
        "RecordAttendanceRequest": {
            "type": "object",
            "required": ["classId", "date", "marks"],
            "properties": {
                "classId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "marks": {"type": "array", "items": {"$ref": "#/definitions/AttendanceMark"}}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["type", "classId", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["class_grades", "assessments", "attendance"]},
                "classId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "passThreshold": {"type": "number"}
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
