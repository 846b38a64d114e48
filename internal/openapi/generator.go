// Package openapi describes the foliogate HTTP API as an OpenAPI 3.1
// document.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/faucetdb/foliogate/internal/model"
)

const tagAccess = "access"

// endpoint describes one POST operation.
type endpoint struct {
	path        string
	operationID string
	summary     string
	description string
	request     string
	response    string
}

var endpoints = []endpoint{
	{
		path:        "/api/validate-password",
		operationID: "validatePassword",
		summary:     "Check a password",
		description: "Compares the password with the configured admin or project secret.",
		request:     "ValidatePasswordRequest",
		response:    "ValidatePasswordResponse",
	},
	{
		path:        "/api/request-access",
		operationID: "requestAccess",
		summary:     "Notify the administrator of an access request",
		description: "Emails the administrator the requester address, project and message.",
		request:     "RequestAccessBody",
		response:    "SendResponse",
	},
	{
		path:        "/api/approve-access",
		operationID: "approveAccess",
		summary:     "Send an access link to an approved requester",
		description: "Emails the requester a link carrying the access token. Supply accessToken or accessCode.",
		request:     "ApproveAccessBody",
		response:    "SendResponse",
	},
}

// GenerateSpec returns the OpenAPI document for the access endpoints served
// at baseURL.
func GenerateSpec(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "1.0.0"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Foliogate API",
			Description: "Password validation and access notification endpoints for protected portfolio projects.",
			Version:     version,
		},
		Tags: openapi3.Tags{
			{Name: tagAccess, Description: "Access gate endpoints"},
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{
		"ValidatePasswordRequest":  {Value: passwordRequestSchema()},
		"ValidatePasswordResponse": {Value: structSchema(model.ValidatePasswordResponse{})},
		"RequestAccessBody":        {Value: structSchema(model.RequestAccessBody{})},
		"ApproveAccessBody":        {Value: structSchema(model.ApproveAccessBody{})},
		"SendResponse":             {Value: structSchema(model.SendResponse{})},
		"ErrorResponse":            {Value: structSchema(model.ErrorResponse{})},
	}
	doc.Components = &components

	doc.Paths = openapi3.NewPaths()
	for _, ep := range endpoints {
		doc.Paths.Set(ep.path, &openapi3.PathItem{Post: postOperation(ep)})
	}
	return doc
}

func passwordRequestSchema() *openapi3.Schema {
	s := structSchema(model.ValidatePasswordRequest{})
	s.Properties["type"].Value.Enum = []interface{}{model.PasswordTypeAdmin, model.PasswordTypeProject}
	return s
}

func postOperation(ep endpoint) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tagAccess},
		Summary:     ep.summary,
		Description: ep.description,
		OperationID: ep.operationID,
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+ep.request, nil)),
			},
		},
		Responses: newResponses(openapi3.NewSchemaRef("#/components/schemas/"+ep.response, nil)),
	}
}

func newResponses(schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	okDesc := "Success"
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &okDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for code, desc := range map[string]string{
		"400": "Missing or invalid fields",
		"405": "Method not allowed",
		"500": "Email provider or configuration failure",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}
