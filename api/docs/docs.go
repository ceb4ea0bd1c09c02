// Package docs 注册 forrflow 的 Swagger 文档，内容与 api/handlers/forr 的注解保持同步
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
        "/api/forr/preview": {
            "post": {
                "description": "展开并过滤参数，返回将要创建的子工作流参数组，不落库",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Forr"],
                "summary": "预览参数组合",
                "parameters": [
                    {
                        "description": "forr 参数",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/forr.PreviewRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/api/forr/tasks/{id}/run": {
            "post": {
                "description": "将 forr 任务实例投递到队列，由 worker 创建或重置子工作流实例",
                "produces": ["application/json"],
                "tags": ["Forr"],
                "summary": "提交扇出任务",
                "parameters": [
                    {"type": "integer", "description": "任务实例ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/api/forr/tasks/{id}/sub-instances": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Forr"],
                "summary": "查询子工作流实例",
                "parameters": [
                    {"type": "integer", "description": "任务实例ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/api/forr/tasks/{id}/kill": {
            "post": {
                "description": "停止全部未结束的子工作流实例，并将父任务置为 KILL",
                "produces": ["application/json"],
                "tags": ["Forr"],
                "summary": "终止扇出任务",
                "parameters": [
                    {"type": "integer", "description": "任务实例ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "服务健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "包含数据库连通性结果，用于判断可接收请求",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "服务就绪检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ReadinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ReadinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "service": {"type": "string"}
            }
        },
        "api.ReadinessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "reason": {"type": "string"},
                "database": {"type": "string"},
                "redis": {"type": "string"}
            }
        },
        "common.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "common.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "forr.ForrInputParameter": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "value": {"type": "string"},
                "separator": {"type": "string"}
            }
        },
        "forr.ForrParameters": {
            "type": "object",
            "properties": {
                "processDefinitionCode": {"type": "integer"},
                "listParameters": {"type": "array", "items": {"$ref": "#/definitions/forr.ForrInputParameter"}},
                "filterCondition": {"type": "string"},
                "maxNumOfSubWorkflowInstances": {"type": "integer"},
                "degreeOfParallelism": {"type": "integer"}
            }
        },
        "forr.PreviewRequest": {
            "type": "object",
            "properties": {
                "parameters": {"$ref": "#/definitions/forr.ForrParameters"},
                "prepareParams": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "forrflow API",
	Description:      "for-each 子工作流扇出服务：参数预览、任务提交、子实例查询与终止",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
