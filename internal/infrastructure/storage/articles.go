package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

var articleColumns = []string{"a.url", "a.title", "a.body", "a.channel", "a.pub_date", "a.ref_dates"}

// GetArticles lists articles in collection order. With a scope, only
// articles collected under exactly that scope are returned.
func (r *SQLRepository) GetArticles(ctx context.Context, query ports.ArticleQuery) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles a").OrderBy("a.created_at", "a.url")
	if query.Scope != nil {
		b = b.Join("article_scopes s ON s.url = a.url").Where(scopeEq("s.", *query.Scope))
	}
	if query.Limit > 0 {
		b = b.Limit(uint64(query.Limit))
	}
	if query.Skip > 0 {
		if query.Limit <= 0 {
			b = b.Limit(math.MaxInt64)
		}
		b = b.Offset(uint64(query.Skip))
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// CountArticles counts stored articles, optionally restricted to a scope.
func (r *SQLRepository) CountArticles(ctx context.Context, scope *domain.Scope) (int, error) {
	b := r.sb.Select("COUNT(DISTINCT a.url)").From("articles a")
	if scope != nil {
		b = b.Join("article_scopes s ON s.url = a.url").Where(scopeEq("s.", *scope))
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// UpsertArticle inserts an unseen URL or merges the article into the stored
// record, and remembers the scope it was collected under.
func (r *SQLRepository) UpsertArticle(ctx context.Context, article domain.Article, scope domain.Scope) (domain.Article, bool, error) {
	if article.URL == "" {
		return domain.Article{}, false, errors.New("article url is required")
	}

	var (
		stored   domain.Article
		inserted bool
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := r.articleByURL(ctx, tx, article.URL)
		if err != nil {
			return err
		}

		now := formatTime(r.now())
		if found {
			stored = domain.MergeArticles(existing, article)
			inserted = false
			refs, err := encodeRefs(stored.RefDates)
			if err != nil {
				return err
			}
			stmt, args, err := r.sb.Update("articles").
				Set("title", stored.Title).
				Set("body", stored.Body).
				Set("channel", stored.Channel).
				Set("pub_date", formatTime(stored.PublishedAt)).
				Set("ref_dates", refs).
				Set("updated_at", now).
				Where(sq.Eq{"url": stored.URL}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build update: %w", err)
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("update article: %w", err)
			}
		} else {
			stored = article
			inserted = true
			refs, err := encodeRefs(stored.RefDates)
			if err != nil {
				return err
			}
			stmt, args, err := r.sb.Insert("articles").
				Columns("url", "title", "body", "channel", "pub_date", "ref_dates", "created_at", "updated_at").
				Values(stored.URL, stored.Title, stored.Body, stored.Channel, formatTime(stored.PublishedAt), refs, now, now).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("insert article: %w", err)
			}
		}

		stmt, args, err := r.sb.Insert("article_scopes").
			Columns("url", "year", "month", "day").
			Values(stored.URL, scope.Year, scope.Month, scope.Day).
			Suffix("ON CONFLICT (url, year, month, day) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build scope insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert article scope: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Article{}, false, err
	}
	return stored, inserted, nil
}

func (r *SQLRepository) articleByURL(ctx context.Context, tx *sql.Tx, url string) (domain.Article, bool, error) {
	stmt, args, err := r.sb.Select(articleColumns...).From("articles a").Where(sq.Eq{"a.url": url}).ToSql()
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("build lookup: %w", err)
	}
	article, err := scanArticle(tx.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, err
	}
	return article, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		article domain.Article
		pubDate string
		refs    string
	)
	if err := row.Scan(&article.URL, &article.Title, &article.Body, &article.Channel, &pubDate, &refs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, err
		}
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}
	published, err := parseTime(pubDate)
	if err != nil {
		return domain.Article{}, err
	}
	article.PublishedAt = published
	if err := json.Unmarshal([]byte(refs), &article.RefDates); err != nil {
		return domain.Article{}, fmt.Errorf("decode ref dates of %s: %w", article.URL, err)
	}
	return article, nil
}

func encodeRefs(refs []domain.DateReference) (string, error) {
	if refs == nil {
		refs = []domain.DateReference{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode ref dates: %w", err)
	}
	return string(raw), nil
}

// scopeEq matches a scope exactly; absent month or day only match absent.
func scopeEq(prefix string, scope domain.Scope) sq.Eq {
	return sq.Eq{
		prefix + "year":  scope.Year,
		prefix + "month": scope.Month,
		prefix + "day":   scope.Day,
	}
}
