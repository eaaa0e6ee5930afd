package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_AddNote(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("api_token")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"success": true, "data": {"id": 1}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	err := client.AddNote(context.Background(), "42", "Approved, go ahead")
	if err != nil {
		t.Fatalf("AddNote() returned error: %v", err)
	}

	if gotPath != "/v1/notes" {
		t.Errorf("AddNote hit %q, want /v1/notes", gotPath)
	}
	if gotToken != "secret-token" {
		t.Errorf("api_token = %q, want secret-token", gotToken)
	}
	if gotBody["deal_id"] != "42" {
		t.Errorf("deal_id = %q, want 42", gotBody["deal_id"])
	}
	if gotBody["content"] != "Approved, go ahead" {
		t.Errorf("content = %q, want note text", gotBody["content"])
	}
}

func TestClient_AddNote_APIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "Deal not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	err := client.AddNote(context.Background(), "999", "note")
	if err == nil {
		t.Fatal("AddNote() should fail when the CRM reports success=false")
	}
	if !strings.Contains(err.Error(), "Deal not found") {
		t.Errorf("Error should carry the CRM diagnostic payload, got: %v", err)
	}
}

func TestClient_AddNote_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	err := client.AddNote(context.Background(), "42", "note")
	if err == nil {
		t.Fatal("AddNote() should fail on a 5xx response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Error should name the HTTP status, got: %v", err)
	}
}

func TestClient_UploadFile(t *testing.T) {
	var gotPath, gotDealID, gotFilename, gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		gotDealID = r.FormValue("deal_id")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file part: %v", err)
		} else {
			defer file.Close()
			gotFilename = header.Filename
			content, _ := io.ReadAll(file)
			gotContent = string(content)
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	err := client.UploadFile(context.Background(), "42", "contract.pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("UploadFile() returned error: %v", err)
	}

	if gotPath != "/v1/files" {
		t.Errorf("UploadFile hit %q, want /v1/files", gotPath)
	}
	if gotDealID != "42" {
		t.Errorf("deal_id = %q, want 42", gotDealID)
	}
	if gotFilename != "contract.pdf" {
		t.Errorf("filename = %q, want contract.pdf", gotFilename)
	}
	if gotContent != "pdf-bytes" {
		t.Errorf("file content = %q, want pdf-bytes", gotContent)
	}
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "short",
			max:      10,
			expected: "short",
		},
		{
			name:     "exact length unchanged",
			input:    "exact",
			max:      5,
			expected: "exact",
		},
		{
			name:     "long string truncated",
			input:    "this is a long diagnostic payload",
			max:      10,
			expected: "this is a ...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Truncate(tc.input, tc.max)
			if result != tc.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tc.input, tc.max, result, tc.expected)
			}
		})
	}
}
