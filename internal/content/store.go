// Package content exposes the published document base to the search
// pipeline.
package content

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lawbot/backend/internal/storage/models"
)

// Store lists the legal articles mirrored from the CMS.
type Store interface {
	ListPublished(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, id int64) (*models.Document, error)
}

// CleanTitle strips any markup the CMS left in a rendered title and
// collapses whitespace. Plain titles pass through unchanged.
func CleanTitle(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.Join(strings.Fields(raw), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
