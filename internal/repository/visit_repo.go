package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/metrics"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type VisitRepository struct {
	db DBTX
}

func NewVisitRepository(db DBTX) *VisitRepository {
	return &VisitRepository{db: db}
}

// Insert stores a visit. Redelivered events with a known id are ignored.
func (r *VisitRepository) Insert(ctx context.Context, v model.VisitEvent) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("insert", "visits", time.Since(start))
	}()

	query := `
        INSERT INTO visits (id, url, user_agent, is_bot, client_is_bot, bot_policy, referrer, remote_addr, visited_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query,
		v.ID, v.URL, v.UserAgent, v.IsBot, v.ClientIsBot, v.BotPolicy, v.Referrer, v.RemoteAddr, v.Timestamp)
	if err != nil {
		return false, fmt.Errorf("insert visit %s: %w", v.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountByClass returns visit counts keyed by "bot" and "human" since the given time.
func (r *VisitRepository) CountByClass(ctx context.Context, since time.Time) (map[string]int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "visits", time.Since(start))
	}()

	query := `
        SELECT is_bot, COUNT(*)
        FROM visits
        WHERE visited_at >= $1
        GROUP BY is_bot
    `
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{"bot": 0, "human": 0}
	for rows.Next() {
		var (
			isBot bool
			n     int64
		)
		if err := rows.Scan(&isBot, &n); err != nil {
			return nil, fmt.Errorf("scan visit count: %w", err)
		}
		counts[model.VisitEvent{IsBot: isBot}.Class()] = n
	}
	return counts, rows.Err()
}
