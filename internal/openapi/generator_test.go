package openapi

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestGenerateSpec(t *testing.T) {
	doc := GenerateSpec("http://localhost:8080", "")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI = %q, want 3.1.0", doc.OpenAPI)
	}
	if doc.Info.Title != "Foliogate API" || doc.Info.Version != "1.0.0" {
		t.Errorf("Info = %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers = %+v", doc.Servers)
	}

	for _, path := range []string{"/api/validate-password", "/api/request-access", "/api/approve-access"} {
		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("missing path %s", path)
			continue
		}
		if item.Post == nil {
			t.Errorf("%s has no POST operation", path)
			continue
		}
		for _, code := range []string{"200", "400", "405", "500"} {
			if item.Post.Responses.Value(code) == nil {
				t.Errorf("%s missing %s response", path, code)
			}
		}
	}
}

func TestGenerateSpecSchemas(t *testing.T) {
	doc := GenerateSpec("", "2.0.0")
	if len(doc.Servers) != 0 {
		t.Errorf("Servers = %+v, want none", doc.Servers)
	}

	req := doc.Components.Schemas["RequestAccessBody"].Value
	if !reflect.DeepEqual(req.Required, []string{"email", "projectId"}) {
		t.Errorf("RequestAccessBody required = %v", req.Required)
	}
	if req.Properties["email"].Value.Format != "email" {
		t.Errorf("email format = %q", req.Properties["email"].Value.Format)
	}

	pw := doc.Components.Schemas["ValidatePasswordRequest"].Value
	if len(pw.Properties["type"].Value.Enum) != 2 {
		t.Errorf("type enum = %v", pw.Properties["type"].Value.Enum)
	}

	approve := doc.Components.Schemas["ApproveAccessBody"].Value
	if approve.Properties["expires"].Value.Type.Is("integer") == false {
		t.Errorf("expires type = %v", approve.Properties["expires"].Value.Type)
	}
	if _, ok := approve.Properties["accessCode"]; !ok {
		t.Error("ApproveAccessBody missing accessCode")
	}
}

func TestGenerateSpecMarshals(t *testing.T) {
	data, err := json.Marshal(GenerateSpec("http://x", "1.2.3"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", back["openapi"])
	}
}

func TestMapKind(t *testing.T) {
	tests := []struct {
		kind       reflect.Kind
		wantType   string
		wantFormat string
	}{
		{reflect.String, "string", ""},
		{reflect.Bool, "boolean", ""},
		{reflect.Int64, "integer", "int64"},
		{reflect.Float64, "number", "double"},
		{reflect.Map, "string", ""},
	}
	for _, tt := range tests {
		got := MapKind(tt.kind)
		if got.Type != tt.wantType || got.Format != tt.wantFormat {
			t.Errorf("MapKind(%v) = %+v, want %s/%s", tt.kind, got, tt.wantType, tt.wantFormat)
		}
	}
}
