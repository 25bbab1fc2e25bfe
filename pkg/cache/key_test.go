package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "endpoint only",
			key:      Key{Endpoint: "products"},
			expected: "storefront:products",
		},
		{
			name:     "leading and trailing slashes normalized",
			key:      Key{Endpoint: "/products/"},
			expected: "storefront:products",
		},
		{
			name: "query params sorted for determinism",
			key: Key{
				Endpoint: "products",
				Query:    url.Values{"page": {"2"}, "limit": {"20"}},
			},
			expected: "storefront:products:limit=20:page=2",
		},
		{
			name: "repeated filter values all included",
			key: Key{
				Endpoint: "products",
				Query:    url.Values{"color": {"red", "blue"}, "limit": {"20"}},
			},
			expected: "storefront:products:color=red,blue:limit=20",
		},
		{
			name:     "empty key",
			key:      Key{},
			expected: "storefront",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Endpoint: "products",
		Query:    url.Values{"a": {"1"}, "b": {"2"}, "c": {"3"}},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestKey_DifferentFiltersDifferentKeys(t *testing.T) {
	a := Key{Endpoint: "products", Query: url.Values{"color": {"red"}}}
	b := Key{Endpoint: "products", Query: url.Values{"color": {"blue"}}}

	if a.String() == b.String() {
		t.Errorf("distinct filter sets must not collide: %q", a.String())
	}
}
