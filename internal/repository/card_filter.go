package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// CardFilter captures card listing parameters. Nil fields do not filter.
type CardFilter struct {
	Status  *domain.CardStatus
	OwnerID *string
	Limit   int
	Offset  int
}

// whereClause renders the filter as a WHERE clause with positional args.
func (f CardFilter) whereClause() (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if f.Status != nil {
		args = append(args, *f.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// Matches applies the filter to a single card.
func (f CardFilter) Matches(card *domain.Card) bool {
	if f.Status != nil && card.Status != *f.Status {
		return false
	}
	if f.OwnerID != nil && card.OwnerID != *f.OwnerID {
		return false
	}
	return true
}

// buildCardListQueries returns the page query and the count query for f.
func buildCardListQueries(f CardFilter) (listQuery, countQuery string, args []any) {
	where, args := f.whereClause()
	limit, offset := normalizePage(f.Limit, f.Offset)

	listQuery = fmt.Sprintf(`SELECT %s FROM cards %s ORDER BY created_at, id LIMIT %d OFFSET %d`,
		cardColumns, where, limit, offset)
	countQuery = `SELECT COUNT(*) FROM cards ` + where
	return listQuery, countQuery, args
}
