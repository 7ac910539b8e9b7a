// Package aggregator merges structural units that share a clause number into
// review units.
package aggregator

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/types"
)

// Aggregate groups units by clause number in first-seen order. Contents of a
// repeated clause number are joined with patterns.ClauseTextSeparator and every
// contributing unit is recorded as a fragment. Blank units are skipped.
func Aggregate(units []types.StructuralUnit) ([]*types.ReviewUnit, error) {
	if len(units) == 0 {
		return nil, errcode.Newf(errcode.ChunkingFailed, "no structural units to aggregate")
	}

	var out []*types.ReviewUnit
	byClause := make(map[string]*types.ReviewUnit)

	for _, u := range units {
		if strings.TrimSpace(u.ClauseContent) == "" {
			continue
		}

		key := strings.TrimSpace(u.ClauseNumber)
		ru, ok := byClause[key]
		if !ok {
			ru = &types.ReviewUnit{
				ClauseNumber:  key,
				IncorrectText: u.ClauseContent,
				Style:         u.Style,
			}
			byClause[key] = ru
			out = append(out, ru)
		} else {
			ru.IncorrectText += patterns.ClauseTextSeparator + u.ClauseContent
		}

		ru.Fragments = append(ru.Fragments, types.Fragment{
			OrderIndex: u.OrderIndex,
			Page:       u.Page,
		})
	}

	if len(out) == 0 {
		return nil, errcode.Newf(errcode.ChunkingFailed, "all %d structural units were blank", len(units))
	}
	return out, nil
}

// Describe renders a one-line summary of a review unit for logs.
func Describe(u *types.ReviewUnit) string {
	pages := make([]string, 0, len(u.Fragments))
	for _, f := range u.Fragments {
		pages = append(pages, fmt.Sprintf("p%d#%d", f.Page, f.OrderIndex))
	}
	return fmt.Sprintf("%s [%s]", u.ClauseNumber, strings.Join(pages, ","))
}
