package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/V4T54L/service-portal/internal/adapter/pii"
	"github.com/V4T54L/service-portal/internal/domain"
)

// HistoryQuery is the raw audit log filter as received from a client.
type HistoryQuery struct {
	Q     string
	Type  string
	Found string
	Page  string
}

// HistoryItem is an audit entry prepared for display.
type HistoryItem struct {
	domain.LookupHistoryEntry
	MaskedValue string `json:"masked_value"`
}

// HistoryPage is one page of the audit log.
type HistoryPage struct {
	Items   []HistoryItem `json:"items"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Total   int           `json:"total"`
	HasPrev bool          `json:"has_prev"`
	HasNext bool          `json:"has_next"`
	Q       string        `json:"q"`
	Type    string        `json:"type"`
	Found   string        `json:"found"`
}

// HistoryUseCase serves the audit log, newest entries first.
type HistoryUseCase struct {
	history domain.HistoryRepository
	masker  *pii.Masker
}

func NewHistoryUseCase(history domain.HistoryRepository, masker *pii.Masker) *HistoryUseCase {
	return &HistoryUseCase{history: history, masker: masker}
}

// Query returns one page of matching entries. An invalid page number yields
// the first page and one past the end yields the last. With redact set,
// sensitive snapshot fields are masked as well.
func (uc *HistoryUseCase) Query(ctx context.Context, hq HistoryQuery, redact bool) (*HistoryPage, error) {
	page := &HistoryPage{
		Q:     strings.TrimSpace(hq.Q),
		Type:  strings.TrimSpace(hq.Type),
		Found: hq.Found,
		Page:  1,
		Pages: 1,
	}

	filter := domain.HistoryFilter{Query: page.Q, Limit: domain.HistoryPageSize}
	if page.Type != "" {
		kind, ok := domain.ParseKind(page.Type)
		if !ok {
			page.Items = []HistoryItem{}
			return page, nil
		}
		filter.Kind = kind
	}
	if hq.Found == "0" || hq.Found == "1" {
		found := hq.Found == "1"
		filter.Found = &found
	}

	requested := 1
	if n, err := strconv.Atoi(strings.TrimSpace(hq.Page)); err == nil && n > 0 {
		requested = n
	}
	filter.Offset = (requested - 1) * domain.HistoryPageSize

	entries, total, err := uc.history.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	pages := (total + domain.HistoryPageSize - 1) / domain.HistoryPageSize
	if pages < 1 {
		pages = 1
	}
	if requested > pages {
		requested = pages
		filter.Offset = (requested - 1) * domain.HistoryPageSize
		entries, total, err = uc.history.Query(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("query history: %w", err)
		}
	}

	page.Page = requested
	page.Pages = pages
	page.Total = total
	page.HasPrev = requested > 1
	page.HasNext = requested < pages
	page.Items = make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := HistoryItem{LookupHistoryEntry: e, MaskedValue: uc.masker.Mask(e.Kind, e.QueryValue)}
		if redact {
			uc.masker.RedactSnapshot(&item.LookupHistoryEntry)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}
