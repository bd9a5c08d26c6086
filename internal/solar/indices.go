package solar

import (
	"context"
	"fmt"
	"math"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// IndicesTimeColumn is the date column of solar.indices_raw.
const IndicesTimeColumn = "date"

// indexColumns are averaged per day. Zero means "not reported" in
// indices_raw (the ingesters store 0 for missing values), so zeros are
// excluded from the average.
var indexColumns = []string{"observed_flux", "adjusted_flux", "ssn", "kp_index", "ap_index"}

// IndicesPrefix is prepended to every averaged column. The SWPC cycle
// indices feed has its own ssn column.
const IndicesPrefix = "indices_"

// IndexColumnNames returns the value columns of the table Load returns.
func IndexColumnNames() []string {
	names := make([]string, len(indexColumns))
	for i, c := range indexColumns {
		names[i] = IndicesPrefix + c
	}
	return names
}

// IndicesQuery builds the daily aggregation over tableFQN (db.table).
func IndicesQuery(tableFQN string) string {
	q := "SELECT date"
	for _, c := range indexColumns {
		q += fmt.Sprintf(", avgIf(%s, %s > 0) AS %s%s", c, c, IndicesPrefix, c)
	}
	return q + fmt.Sprintf(" FROM %s GROUP BY date ORDER BY date", tableFQN)
}

// IndicesReader loads daily solar indices from ClickHouse via the native
// protocol.
type IndicesReader struct {
	cfg common.ClickHouseConfig
	log *zap.Logger
}

// NewIndicesReader creates a reader for cfg.SolarTable in cfg.Database.
func NewIndicesReader(cfg common.ClickHouseConfig, log *zap.Logger) *IndicesReader {
	return &IndicesReader{cfg: cfg, log: common.OrNop(log)}
}

// Load returns one row per date with the averaged index columns. The key
// column is "date".
func (r *IndicesReader) Load(ctx context.Context) (*table.Table, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     r.cfg.Host,
		Database:    r.cfg.Database,
		User:        r.cfg.User,
		Password:    r.cfg.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ClickHouse connection failed: %v", common.ErrSourceRead, err)
	}
	defer conn.Close()

	tableFQN := fmt.Sprintf("%s.%s", r.cfg.Database, r.cfg.SolarTable)
	r.log.Info("querying solar indices", zap.String("table", tableFQN))

	var date proto.ColDate32
	values := make([]proto.ColFloat64, len(indexColumns))
	names := IndexColumnNames()
	results := proto.Results{{Name: "date", Data: &date}}
	for i, name := range names {
		results = append(results, proto.ResultColumn{Name: name, Data: &values[i]})
	}

	t := table.New(IndicesTimeColumn)
	t.Columns = make([]table.Column, len(names))
	for i, name := range names {
		t.Columns[i] = table.Column{Name: name, Kind: table.Numeric}
	}

	err = conn.Do(ctx, ch.Query{
		Body:   IndicesQuery(tableFQN),
		Result: results,
		OnResult: func(ctx context.Context, block proto.Block) error {
			for row := 0; row < date.Rows(); row++ {
				t.Dates = append(t.Dates, table.Day(date.Row(row)))
				for i := range values {
					v := values[i].Row(row)
					if math.IsInf(v, 0) {
						v = math.NaN()
					}
					t.Columns[i].Floats = append(t.Columns[i].Floats, v)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", common.ErrSourceRead, tableFQN, err)
	}

	r.log.Info("loaded source", zap.String("source", tableFQN), zap.Int("rows", t.Rows()))
	return t, nil
}
