package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/rushteam/modelcon/core"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresOptions 是连接 PostgreSQL 的参数。
type PostgresOptions struct {
	DSN            string
	Table          string
	MaxConnections int
}

// PostgresSink 把推荐记录 upsert 到 PostgreSQL。
//
// 每个 (app_id, algo_id, model_set, uid) 一行；评估模式写入 training_{table}。
type PostgresSink struct {
	db    *sql.DB
	table string
}

// OpenPostgres 打开连接池并 Ping。
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*PostgresSink, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if opts.MaxConnections > 0 {
		db.SetMaxOpenConns(opts.MaxConnections)
		db.SetMaxIdleConns(opts.MaxConnections)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return NewPostgresSink(db, opts.Table)
}

// NewPostgresSink 基于已有连接创建 Sink。
func NewPostgresSink(db *sql.DB, table string) (*PostgresSink, error) {
	if table == "" {
		table = "itemrec_scores"
	}
	if !identPattern.MatchString(table) {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("store: invalid table name %q", table))
	}
	return &PostgresSink{db: db, table: table}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Table 返回记录写入的表名。
func (s *PostgresSink) Table(training bool) string {
	if training {
		return TrainingPrefix + s.table
	}
	return s.table
}

// EnsureSchema 创建服务表与评估表（已存在则跳过）。
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{s.Table(false), s.Table(true)} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createTableSQL, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	app_id     INTEGER NOT NULL,
	algo_id    INTEGER NOT NULL,
	model_set  BOOLEAN NOT NULL,
	uid        TEXT NOT NULL,
	iids       TEXT[] NOT NULL,
	scores     DOUBLE PRECISION[] NOT NULL,
	itypes     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (app_id, algo_id, model_set, uid)
)`

const upsertSQL = `INSERT INTO %s (app_id, algo_id, model_set, uid, iids, scores, itypes, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (app_id, algo_id, model_set, uid)
DO UPDATE SET iids = EXCLUDED.iids, scores = EXCLUDED.scores, itypes = EXCLUDED.itypes, updated_at = EXCLUDED.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresSink) upsert(ctx context.Context, ex execer, rec *core.Recommendation) error {
	types := make([][]string, len(rec.Items))
	for i, it := range rec.Items {
		types[i] = it.Types
	}
	itypes, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("encode itypes for %s: %w", rec.UserID, err)
	}

	_, err = ex.ExecContext(ctx, fmt.Sprintf(upsertSQL, s.Table(rec.Training)),
		rec.AppID, rec.AlgoID, rec.ModelSet, rec.UserID,
		pq.Array(rec.ItemIDs()), pq.Array(rec.Scores()), itypes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation for %s: %w", rec.UserID, err)
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, rec *core.Recommendation) error {
	return s.upsert(ctx, s.db, rec)
}

// WriteBatch 在一个事务内按顺序 upsert。
func (s *PostgresSink) WriteBatch(ctx context.Context, recs []*core.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, rec := range recs {
		if err := s.upsert(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

var _ core.BatchSink = (*PostgresSink)(nil)
