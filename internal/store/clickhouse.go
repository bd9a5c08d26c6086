// Package store publishes fused tables to ClickHouse next to the solar
// index tables.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// Publisher writes fused tables into <database>.fused_<satellite>.
type Publisher struct {
	conn     driver.Conn
	database string
	log      *zap.Logger
}

// Open connects to ClickHouse and verifies the connection.
func Open(ctx context.Context, cfg common.ClickHouseConfig, log *zap.Logger) (*Publisher, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Host},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("ClickHouse connection failed: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}
	return &Publisher{conn: conn, database: cfg.Database, log: common.OrNop(log)}, nil
}

// Close releases the connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// TableName returns the fused table name for a satellite.
func TableName(satellite string) string {
	var b strings.Builder
	b.WriteString("fused_")
	for _, r := range strings.ToLower(satellite) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "\\`") + "`"
}

func columnType(k table.Kind) string {
	switch k {
	case table.Text:
		return "Nullable(String)"
	case table.Temporal:
		return "Nullable(DateTime)"
	default:
		return "Nullable(Float64)"
	}
}

// CreateTableDDL returns the statement that (re)creates the table for t.
// Each run replaces the previous table, like the CSV artifact.
func CreateTableDDL(tableFQN string, t *table.Table) string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quoteIdent(t.Key)+" Date32")
	for i := range t.Columns {
		cols = append(cols, quoteIdent(t.Columns[i].Name)+" "+columnType(t.Columns[i].Kind))
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s) ENGINE = MergeTree ORDER BY %s",
		tableFQN, strings.Join(cols, ", "), quoteIdent(t.Key))
}

// rowValues returns the driver arguments of one row; nil pointers become NULL.
func rowValues(t *table.Table, row int) []any {
	vals := make([]any, 0, len(t.Columns)+1)
	vals = append(vals, t.Dates[row])
	for i := range t.Columns {
		c := &t.Columns[i]
		switch {
		case c.Kind == table.Text:
			var v *string
			if !c.IsMissing(row) {
				s := c.Strings[row]
				v = &s
			}
			vals = append(vals, v)
		case c.Kind == table.Temporal:
			var v *time.Time
			if !c.IsMissing(row) {
				ts := time.Unix(int64(c.Floats[row]), 0).UTC()
				v = &ts
			}
			vals = append(vals, v)
		default:
			var v *float64
			if !c.IsMissing(row) {
				f := c.Floats[row]
				v = &f
			}
			vals = append(vals, v)
		}
	}
	return vals
}

// Publish replaces the satellite's fused table with t.
func (p *Publisher) Publish(ctx context.Context, satellite string, t *table.Table) error {
	tableFQN := fmt.Sprintf("%s.%s", p.database, TableName(satellite))

	if err := p.conn.Exec(ctx, CreateTableDDL(tableFQN, t)); err != nil {
		return fmt.Errorf("create %s: %w", tableFQN, err)
	}

	batch, err := p.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableFQN))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", tableFQN, err)
	}
	for row := 0; row < t.Rows(); row++ {
		if err := batch.Append(rowValues(t, row)...); err != nil {
			batch.Abort()
			return fmt.Errorf("append row %d: %w", row, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert %s: %w", tableFQN, err)
	}

	p.log.Info("published fused table", zap.String("table", tableFQN), zap.Int("rows", t.Rows()))
	return nil
}
