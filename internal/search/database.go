package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DB matches the pgx connection pool and pgx transactions.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DatabaseSearcher matches extensions with SQL over the registry tables.
// Text matching works on the metadata of each extension's latest active
// version plus the extension and namespace names, weighted so name hits
// outrank description hits, and scaled by popularity.
type DatabaseSearcher struct {
	db DB
}

// NewDatabaseSearcher builds a searcher on top of the given pool or
// transaction.
func NewDatabaseSearcher(db DB) *DatabaseSearcher {
	return &DatabaseSearcher{db: db}
}

// searchFrom joins each active extension with the metadata of its latest
// active version. Parameters: $1 text pattern ('' disables), $2 category
// ('' disables), $3 target platform ('' disables), $4 excluded namespaces
// (lower case).
const searchFrom = `
WITH latest AS (
    SELECT DISTINCT ON (v.extension_id)
           v.extension_id, v.display_name, v.description, v.tags, v.categories
    FROM extension_version v
    WHERE v.active
    ORDER BY v.extension_id, v.timestamp DESC, v.id DESC
)
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
JOIN latest l ON l.extension_id = e.id
WHERE e.active
  AND NOT (LOWER(n.name) = ANY($4))
  AND ($1 = '' OR ` + matchScore + ` > 0)
  AND ($2 = '' OR EXISTS (
      SELECT 1 FROM unnest(l.categories) AS c WHERE LOWER(c) = LOWER($2)))
  AND ($3 = '' OR EXISTS (
      SELECT 1 FROM extension_version tv
      WHERE tv.extension_id = e.id
        AND tv.active
        AND tv.target_platform IN ($3, 'universal')))
`

// matchScore weighs where the pattern hits. Extension name beats namespace
// beats display name beats description and tags.
const matchScore = `(
      CASE WHEN e.name ILIKE $1 THEN 10 ELSE 0 END
    + CASE WHEN n.name ILIKE $1 THEN 5 ELSE 0 END
    + CASE WHEN l.display_name ILIKE $1 THEN 3 ELSE 0 END
    + CASE WHEN l.description ILIKE $1 THEN 1 ELSE 0 END
    + CASE WHEN EXISTS (SELECT 1 FROM unnest(l.tags) AS t WHERE t ILIKE $1) THEN 1 ELSE 0 END
)`

// relevance folds popularity into the text score so a widely used extension
// ranks above an obscure one with the same match.
const relevance = `
(CASE WHEN $1 = '' THEN 1 ELSE ` + matchScore + ` END)
* (1.0 + ln(1 + e.download_count) / 10.0 + COALESCE(e.average_rating, 0.0) / 10.0)
`

const searchCount = `SELECT COUNT(*)` + searchFrom

const searchPage = `SELECT e.id, ` + relevance + ` AS score` + searchFrom + `
ORDER BY %s
LIMIT $5 OFFSET $6
`

// Search returns the ids of matching extensions in result order, plus the
// total number of matches before paging.
func (s *DatabaseSearcher) Search(ctx context.Context, opts Options) ([]int64, int64, error) {
	opts = opts.normalized()

	pattern := ""
	if opts.Query != "" {
		pattern = "%" + escapeLike(opts.Query) + "%"
	}
	excluded := make([]string, 0, len(opts.ExcludeNamespaces))
	for _, ns := range opts.ExcludeNamespaces {
		excluded = append(excluded, strings.ToLower(ns))
	}
	args := []any{pattern, opts.Category, opts.TargetPlatform, excluded}

	var total int64
	if err := s.db.QueryRow(ctx, searchCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(searchPage, orderClause(opts))
	rows, err := s.db.Query(ctx, query, append(args, opts.Size, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search extensions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, 0, fmt.Errorf("failed to scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to search extensions: %w", err)
	}
	return ids, total, nil
}

// orderClause maps the validated sort options onto SQL. Only known column
// expressions are emitted; user input never reaches the query text.
func orderClause(opts Options) string {
	dir := "DESC"
	if opts.SortOrder == OrderAsc {
		dir = "ASC"
	}
	switch opts.SortBy {
	case SortDownloadCount:
		return "e.download_count " + dir + ", e.id"
	case SortTimestamp:
		return "e.last_updated_date " + dir + ", e.id"
	case SortAverageRating:
		return "e.average_rating " + dir + " NULLS LAST, e.id"
	default:
		return "score " + dir + ", e.download_count DESC, e.id"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
