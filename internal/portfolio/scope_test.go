package portfolio

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestScopeCheck(t *testing.T) {
	id := uuid.New()
	nilID := uuid.Nil

	cases := []struct {
		name  string
		scope Scope
		ok    bool
	}{
		{"full portfolio", FullPortfolio(), true},
		{"full portfolio with page", Scope{Type: ShareFullPortfolio, PageID: &id}, false},
		{"category", CategoryScope(id), true},
		{"category without id", Scope{Type: ShareCategory}, false},
		{"category with nil uuid", Scope{Type: ShareCategory, CategoryID: &nilID}, false},
		{"category with page", Scope{Type: ShareCategory, CategoryID: &id, PageID: &id}, false},
		{"single page", PageScope(id), true},
		{"single page without id", Scope{Type: ShareSinglePage}, false},
		{"single page with category", Scope{Type: ShareSinglePage, CategoryID: &id, PageID: &id}, false},
		{"unknown type", Scope{Type: "everything"}, false},
		{"full portfolio ignores nil uuid refs", Scope{Type: ShareFullPortfolio, CategoryID: &nilID}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scope.Check()
			if tc.ok && err != nil {
				t.Fatalf("expected valid scope, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrScope) {
				t.Fatalf("expected ErrScope, got %v", err)
			}
		})
	}
}

func TestLinkAndRequestScope(t *testing.T) {
	cat := uuid.New()
	link := SharedLink{ShareType: ShareCategory, CategoryID: &cat}
	if err := link.Scope().Check(); err != nil {
		t.Fatalf("link scope: %v", err)
	}
	req := ShareRequest{ShareType: ShareSinglePage, CategoryID: &cat}
	if err := req.Scope().Check(); !errors.Is(err, ErrScope) {
		t.Fatalf("request scope: expected ErrScope, got %v", err)
	}
}
