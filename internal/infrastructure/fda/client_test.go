package fda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFindByBrandReturnsFirstResult(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drug/label.json" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("search")
		if r.URL.Query().Get("limit") != "1" {
			t.Fatalf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"label-1","openfda":{"brand_name":["Advil"]}},{"id":"label-2"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	record, err := client.FindByBrand(context.Background(), "Advil")
	if err != nil {
		t.Fatalf("FindByBrand() error = %v", err)
	}
	if record == nil || !strings.Contains(string(record), `"label-1"`) {
		t.Fatalf("expected first result, got %s", record)
	}
	if gotQuery != `openfda.brand_name:"Advil"` {
		t.Fatalf("unexpected search term: %q", gotQuery)
	}
}

func TestFindByGenericUsesGenericField(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`{"results":[{"id":"gen-1"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if _, err := client.FindByGeneric(context.Background(), "Ibuprofen"); err != nil {
		t.Fatalf("FindByGeneric() error = %v", err)
	}
	if gotQuery != `openfda.generic_name:"Ibuprofen"` {
		t.Fatalf("unexpected search term: %q", gotQuery)
	}
}

func TestLookupTreatsNotFoundAsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"NOT_FOUND","message":"No matches found!"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	record, err := client.FindByBrand(context.Background(), "Nonexistium")
	if err != nil {
		t.Fatalf("expected no-match to be a non-error, got %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %s", record)
	}
}

func TestLookupTreatsEmptyResultsAsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	record, err := client.FindByBrand(context.Background(), "Anything")
	if err != nil || record != nil {
		t.Fatalf("expected nil, nil; got %s, %v", record, err)
	}
}

func TestLookupSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.FindByBrand(context.Background(), "Advil")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
