package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fundflow/internal/contracts"
)

// FundFlowRepository implements contracts.FundFlowRepository on PostgreSQL
// ⭐ SSOT: 자금흐름 DB 저장소는 여기서만
type FundFlowRepository struct {
	pool *pgxpool.Pool
}

// NewFundFlowRepository creates a new fund flow repository
func NewFundFlowRepository(pool *pgxpool.Pool) *FundFlowRepository {
	return &FundFlowRepository{pool: pool}
}

const fundFlowDDL = `
	CREATE SCHEMA IF NOT EXISTS data;
	CREATE TABLE IF NOT EXISTS data.fund_flow (
		code                  TEXT        NOT NULL,
		trade_date            DATE        NOT NULL,
		close                 NUMERIC,
		pct_change            NUMERIC,
		turnover_rate         NUMERIC,
		net_flow_amount       NUMERIC,
		main_net_flow         NUMERIC,
		super_large_net_flow  NUMERIC,
		large_net_flow        NUMERIC,
		medium_small_net_flow NUMERIC,
		run_id                UUID        NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (code, trade_date)
	);
`

// EnsureSchema creates the fund_flow table when missing
func (r *FundFlowRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, fundFlowDDL); err != nil {
		return fmt.Errorf("ensure fund_flow schema: %w", err)
	}
	return nil
}

// SaveBatch upserts rows keyed by (code, trade_date) in one transaction.
// Rows without a date cannot be keyed and are skipped; the number saved is returned.
func (r *FundFlowRepository) SaveBatch(ctx context.Context, runID string, flows []contracts.FundFlow) (int, error) {
	if len(flows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.fund_flow (
			code, trade_date, close, pct_change, turnover_rate, net_flow_amount,
			main_net_flow, super_large_net_flow, large_net_flow, medium_small_net_flow, run_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			close                 = EXCLUDED.close,
			pct_change            = EXCLUDED.pct_change,
			turnover_rate         = EXCLUDED.turnover_rate,
			net_flow_amount       = EXCLUDED.net_flow_amount,
			main_net_flow         = EXCLUDED.main_net_flow,
			super_large_net_flow  = EXCLUDED.super_large_net_flow,
			large_net_flow        = EXCLUDED.large_net_flow,
			medium_small_net_flow = EXCLUDED.medium_small_net_flow,
			run_id                = EXCLUDED.run_id,
			updated_at            = now()
	`

	batch := &pgx.Batch{}
	for _, f := range flows {
		if f.Date == nil {
			continue
		}
		batch.Queue(query,
			f.Code, *f.Date, f.Close, f.PctChange, f.TurnoverRate, f.NetFlowAmount,
			f.MainNetFlow, f.SuperLargeNetFlow, f.LargeNetFlow, f.MediumSmallNetFlow, runID,
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("upsert fund_flow: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return batch.Len(), nil
}

// GetByCodeAndDateRange retrieves rows for a code within [from, to], ascending
func (r *FundFlowRepository) GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]contracts.FundFlow, error) {
	query := `
		SELECT code, trade_date, close, pct_change, turnover_rate, net_flow_amount,
		       main_net_flow, super_large_net_flow, large_net_flow, medium_small_net_flow
		FROM data.fund_flow
		WHERE code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []contracts.FundFlow
	for rows.Next() {
		var f contracts.FundFlow
		if err := rows.Scan(
			&f.Code, &f.Date, &f.Close, &f.PctChange, &f.TurnoverRate, &f.NetFlowAmount,
			&f.MainNetFlow, &f.SuperLargeNetFlow, &f.LargeNetFlow, &f.MediumSmallNetFlow,
		); err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}
