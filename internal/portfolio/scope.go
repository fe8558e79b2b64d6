package portfolio

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope 决定 SharedLink 或 ShareRequest 授予的范围：整个作品集、单个分类或单个页面。
type Scope struct {
	Type       ShareType  `json:"share_type"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	PageID     *uuid.UUID `json:"page_id,omitempty"`
}

func FullPortfolio() Scope { return Scope{Type: ShareFullPortfolio} }

func CategoryScope(id uuid.UUID) Scope { return Scope{Type: ShareCategory, CategoryID: &id} }

func PageScope(id uuid.UUID) Scope { return Scope{Type: ShareSinglePage, PageID: &id} }

// Check 要求恰好提供 Type 所需的引用。
func (s Scope) Check() error {
	hasCategory := s.CategoryID != nil && *s.CategoryID != uuid.Nil
	hasPage := s.PageID != nil && *s.PageID != uuid.Nil
	switch s.Type {
	case ShareFullPortfolio:
		if hasCategory || hasPage {
			return fmt.Errorf("%w: full_portfolio takes no category or page", ErrScope)
		}
	case ShareCategory:
		if !hasCategory {
			return fmt.Errorf("%w: category scope requires category_id", ErrScope)
		}
		if hasPage {
			return fmt.Errorf("%w: category scope forbids page_id", ErrScope)
		}
	case ShareSinglePage:
		if !hasPage {
			return fmt.Errorf("%w: single_page scope requires page_id", ErrScope)
		}
		if hasCategory {
			return fmt.Errorf("%w: single_page scope forbids category_id", ErrScope)
		}
	default:
		return fmt.Errorf("%w: unknown share type %q", ErrScope, s.Type)
	}
	return nil
}
