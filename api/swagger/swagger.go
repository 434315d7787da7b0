package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Enrollment Portal API",
        "description": "School enrollment portal: three-step enrollment wizard, PSGC address lookups, document uploads and staff review",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, session probe and password flows"},
        {"name": "Enrollment", "description": "The three-step enrollment wizard"},
        {"name": "Address", "description": "Cascading PSGC address lookups"},
        {"name": "Students", "description": "Student and applicant listings"},
        {"name": "Portal", "description": "Public dashboard reads"},
        {"name": "Exports", "description": "Applicant exports and form printouts"}
    ],
    "paths": {
        "/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email or LRN",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/urlAuthentication": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Probe the current session role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requestCode": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Request a password reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifyCode": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Verify a password reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyCodeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or expired code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/changePassword": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Reset password with a verified code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password updated"},
                    "400": {"description": "Invalid or expired code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change_password": {
            "patch": {
                "tags": ["Authentication"],
                "summary": "Change password for the signed-in user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password updated"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/terms": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Accept terms and create the enrollment session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcceptTermsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Terms declined", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Resume an in-progress enrollment",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No enrollment in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollment"],
                "summary": "Save one wizard step",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveStepRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved or resumed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Earlier step incomplete", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/documents/{kind}": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Upload a certification document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unsupported or oversized file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollment"],
                "summary": "Remove an uploaded document",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/enrollment/submit": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Submit the enrollment for review",
                "responses": {
                    "201": {"description": "Submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending application exists for this LRN", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Earlier step incomplete", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/preview/{token}": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Preview an uploaded document",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Image stream"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approveApplicant": {
            "patch": {
                "tags": ["Enrollment"],
                "summary": "Approve a pending applicant",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveApplicantRequest"}}
                ],
                "responses": {
                    "204": {"description": "Approved"},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/address/regions": {
            "get": {
                "tags": ["Address"],
                "summary": "List regions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/address/municipalities": {
            "get": {
                "tags": ["Address"],
                "summary": "List cities/municipalities",
                "parameters": [
                    {"name": "region", "in": "query", "required": true, "type": "string"},
                    {"name": "province", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/address/zip": {
            "get": {
                "tags": ["Address"],
                "summary": "Infer the ZIP code of a city/municipality",
                "parameters": [
                    {"name": "municipality", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/getStudents": {
            "get": {
                "tags": ["Students"],
                "summary": "List enrolled students",
                "parameters": [
                    {"name": "grade_level", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/getApplicants": {
            "get": {
                "tags": ["Students"],
                "summary": "List submitted registrations",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "grade_level", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/getStudentProfile": {
            "get": {
                "tags": ["Students"],
                "summary": "Get the signed-in student's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/getClassrooms": {
            "get": {
                "tags": ["Portal"],
                "summary": "List classrooms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/getHomeAnnouncement": {
            "get": {
                "tags": ["Portal"],
                "summary": "List home-page announcements",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an applicant-list export",
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["identifier", "password"],
            "properties": {
                "identifier": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "EmailRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "VerifyCodeRequest": {
            "type": "object",
            "required": ["email", "code"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "ResetPasswordRequest": {
            "type": "object",
            "required": ["email", "code", "new_password"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "required": ["old_password", "new_password"],
            "properties": {
                "old_password": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "AcceptTermsRequest": {
            "type": "object",
            "required": ["accepted"],
            "properties": {
                "accepted": {"type": "boolean"}
            }
        },
        "SaveStepRequest": {
            "type": "object",
            "required": ["step"],
            "properties": {
                "step": {"type": "string", "enum": ["step1", "step2"]},
                "enrollment_id": {"type": "string"},
                "step1": {"type": "object"},
                "step2": {"type": "object"}
            }
        },
        "ApproveApplicantRequest": {
            "type": "object",
            "required": ["enrollment_id"],
            "properties": {
                "enrollment_id": {"type": "string"}
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
                "status": {"type": "integer"},
                "fields": {"type": "object"}
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
