package usecase

import "github.com/riskibarqy/match-aggregator/internal/domain/match"

// paginate slices an already normalized and ordered result set.
func paginate(items []match.CanonicalMatch, page, limit int) ([]match.CanonicalMatch, match.Pagination) {
	total := len(items)
	pagination := buildPagination(page, limit, total)

	start := (pagination.Page - 1) * pagination.Limit
	if start >= total {
		return []match.CanonicalMatch{}, pagination
	}
	end := min(start+pagination.Limit, total)
	return append([]match.CanonicalMatch(nil), items[start:end]...), pagination
}

func buildPagination(page, limit, total int) match.Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = match.DefaultPageLimit
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return match.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page*limit < total,
	}
}
