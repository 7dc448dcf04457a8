package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Inventory Control API",
        "description": "Material request workflow with warehouse access control",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Requests", "description": "Material request workflow"},
        {"name": "Assignments", "description": "User to warehouse access"},
        {"name": "Transactions", "description": "Inventory movement log"},
        {"name": "Warehouses", "description": "Warehouse catalogue"},
        {"name": "Notifications", "description": "Per-user notification feed"},
        {"name": "Users", "description": "User administration"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Password changed"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests visible to the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Create a request draft",
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "No write access to an item warehouse"}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Request detail with items and history",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/requests/{id}/history": {
            "get": {
                "tags": ["Requests"],
                "summary": "Transition history",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/requests/{id}/submit": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a draft for approval",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/approve": {
            "post": {
                "tags": ["Requests"],
                "summary": "Approve a submitted request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/receive": {
            "post": {
                "tags": ["Requests"],
                "summary": "Mark items received and create income transactions",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/install": {
            "post": {
                "tags": ["Requests"],
                "summary": "Mark items installed",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/complete": {
            "post": {
                "tags": ["Requests"],
                "summary": "Complete an installed request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/cancel": {
            "post": {
                "tags": ["Requests"],
                "summary": "Cancel a request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reject a submitted request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/requests/{id}/items": {
            "post": {
                "tags": ["Requests"],
                "summary": "Add an item to an editable request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request is not editable"}
                }
            }
        },
        "/requests/{id}/items/{itemId}": {
            "delete": {
                "tags": ["Requests"],
                "summary": "Remove an item from an editable request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Last item cannot be removed"}
                }
            }
        },
        "/requests/{id}/transactions": {
            "get": {
                "tags": ["Transactions"],
                "summary": "Transactions created by a request",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/user-warehouses": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a warehouse to a user",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already assigned"},
                    "422": {"description": "Warehouse missing or inactive"}
                }
            }
        },
        "/user-warehouses/bulk": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign one warehouse to many users",
                "responses": {
                    "200": {"description": "Per-user outcomes"}
                }
            }
        },
        "/user-warehouses/{userId}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Assignments of a user",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/user-warehouses/{userId}/default": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Default warehouse of a user",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No assignments"}
                }
            }
        },
        "/user-warehouses/{userId}/{warehouseId}": {
            "patch": {
                "tags": ["Assignments"],
                "summary": "Update access level of an assignment",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Remove an assignment",
                "responses": {
                    "204": {"description": "Removed"},
                    "409": {"description": "Last assignment cannot be removed"}
                }
            }
        },
        "/user-warehouses/{userId}/{warehouseId}/default": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Mark an assignment as default",
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/user-warehouses/check/{warehouseId}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Check the caller's access to a warehouse",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/transactions": {
            "get": {
                "tags": ["Transactions"],
                "summary": "List inventory transactions",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/transactions/export": {
            "get": {
                "tags": ["Transactions"],
                "summary": "Export transactions as CSV or PDF",
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/warehouses": {
            "get": {
                "tags": ["Warehouses"],
                "summary": "List warehouses accessible to the caller",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/warehouses/{id}": {
            "get": {
                "tags": ["Warehouses"],
                "summary": "Warehouse detail",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "No access"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/notifications/read-all": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark all notifications as read",
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create a user",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Authenticated user profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "User detail",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "patch": {
                "tags": ["Users"],
                "summary": "Update a user",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate a user",
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
