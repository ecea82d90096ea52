// Package docs holds the swagger document served at /swagger.
// Regenerate with: swag init -g cmd/web/main.go
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
    "paths": {
        "/api/v1/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"},
                    {"type": "boolean", "description": "Only unread", "name": "unread_only", "in": "query"},
                    {"type": "string", "description": "Notification type", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.NotificationListResponse"}}
                }
            }
        },
        "/api/v1/notifications/unread-count": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Unread notification count",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.UnreadCountResponse"}}
                }
            }
        },
        "/api/v1/admin/notifications": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a notification and push it to the recipient",
                "parameters": [
                    {"description": "Notification", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/dto.CreateNotificationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.NotificationResponse"}}
                }
            }
        },
        "/api/v1/orders/{orderId}/tracking": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tracking"],
                "summary": "Tracking log of an order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TrackingListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tracking"],
                "summary": "Record a tracking event",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true},
                    {"description": "Event", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/dto.AppendTrackingEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.TrackingEventResponse"}}
                }
            }
        },
        "/api/v1/orders/{orderId}/status": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tracking"],
                "summary": "Change an order's status",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true},
                    {"description": "New status", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/dto.UpdateOrderStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StatusChange"}}
                }
            }
        },
        "/api/v1/admin/realtime/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Live websocket connection counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ws.RegistryStats"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["realtime"],
                "summary": "Realtime channel",
                "parameters": [
                    {"type": "string", "description": "Access token when no Authorization header can be sent", "name": "token", "in": "query"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "dto.CreateNotificationRequest": {
            "type": "object",
            "required": ["user_id", "type", "title"],
            "properties": {
                "user_id": {"type": "string"},
                "type": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "data": {"type": "object", "additionalProperties": true}
            }
        },
        "dto.NotificationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "type": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "data": {"type": "object", "additionalProperties": true},
                "is_read": {"type": "boolean"},
                "read_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "dto.NotificationListResponse": {
            "type": "object",
            "properties": {
                "notifications": {"type": "array", "items": {"$ref": "#/definitions/dto.NotificationResponse"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "dto.UnreadCountResponse": {
            "type": "object",
            "properties": {"unread_count": {"type": "integer"}}
        },
        "dto.AppendTrackingEventRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "location": {"type": "string"},
                "description": {"type": "string"},
                "estimated_at": {"type": "string"},
                "actual_at": {"type": "string"}
            }
        },
        "dto.TrackingEventResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "order_id": {"type": "string"},
                "status": {"type": "string"},
                "location": {"type": "string"},
                "description": {"type": "string"},
                "estimated_at": {"type": "string"},
                "actual_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "dto.TrackingListResponse": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/dto.TrackingEventResponse"}}
            }
        },
        "dto.UpdateOrderStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string"}}
        },
        "dto.StatusChange": {
            "type": "object",
            "properties": {
                "orderId": {"type": "string"},
                "status": {"type": "string"},
                "previousStatus": {"type": "string"}
            }
        },
        "ws.RegistryStats": {
            "type": "object",
            "properties": {
                "connections": {"type": "integer"},
                "authenticated": {"type": "integer"},
                "users": {"type": "integer"},
                "order_topics": {"type": "integer"},
                "notification_subscriptions": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:4000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "roastmarket realtime API",
	Description:      "Order tracking, order status and user notifications, with live delivery over /ws.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
