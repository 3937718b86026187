package garmin

import (
	"context"
	"fmt"

	"gcexport/pkg/errors"
	"gcexport/pkg/logger"
	"gcexport/pkg/models"
	"gcexport/pkg/session"
)

// MaxPageSize is the largest limit the search endpoint accepts; larger
// requests are answered with 400.
const MaxPageSize = 100

// Catalog walks the activity search endpoint page by page
type Catalog struct {
	session  session.Session
	protocol Protocol
	logger   logger.Logger
}

// NewCatalog creates a paginator over an authenticated session
func NewCatalog(s session.Session, p Protocol, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Catalog{
		session:  s,
		protocol: p,
		logger:   log.WithField("component", "catalog"),
	}
}

// FetchPage requests size activities starting at offset, newest first.
// Callers clamp size to MaxPageSize.
func (c *Catalog) FetchPage(ctx context.Context, offset, size int) (*Page, error) {
	if size < 1 || size > MaxPageSize {
		return nil, fmt.Errorf("page size %d out of range 1..%d", size, MaxPageSize)
	}
	if offset < 0 {
		return nil, fmt.Errorf("negative page offset %d", offset)
	}

	searchURL := c.protocol.SearchURL(offset, size)
	body, err := c.session.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("activity search at offset %d: %w", offset, err)
	}

	page, err := c.protocol.ParsePage(body)
	if err != nil {
		return nil, err
	}
	page.Offset = offset
	page.Size = size

	c.logger.DebugWithFields("Fetched activity page", map[string]interface{}{
		"offset":     offset,
		"limit":      size,
		"activities": len(page.Activities),
	})
	return &page, nil
}

// ResolveTotal returns how many activities the run covers. A literal count
// is returned unchanged with no request. For "all" and "new" the total is
// looked up once: through the protocol's out of band count when it has one,
// otherwise from a one-activity first page, which is returned so the caller
// processes it instead of fetching it again.
func (c *Catalog) ResolveTotal(ctx context.Context, count models.Count) (int, *Page, error) {
	if count.Kind == models.CountNumber {
		return count.N, nil, nil
	}

	total, ok, err := c.protocol.CountActivities(ctx, c.session)
	if err != nil {
		return 0, nil, fmt.Errorf("counting activities: %w", err)
	}
	if ok {
		c.logger.WithField("total", total).Info("Resolved activity total")
		return total, nil, nil
	}

	first, err := c.FetchPage(ctx, 0, 1)
	if err != nil {
		return 0, nil, err
	}
	if !first.HasTotal {
		return 0, nil, errors.Parsing(c.protocol.SearchURL(0, 1), fmt.Errorf("search response carries no total"))
	}
	c.logger.WithField("total", first.Total).Info("Resolved activity total")
	return first.Total, first, nil
}
