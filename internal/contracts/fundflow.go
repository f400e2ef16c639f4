package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one trading day as returned by the money-flow endpoint:
// API field name → textual value. Numbers keep their textual JSON form.
type RawRecord map[string]string

// FundFlow is one normalized trading day
// ⭐ SSOT: S0 정규화 결과 스키마는 여기서만 정의
type FundFlow struct {
	Date               *time.Time          `json:"date"` // nil = unparseable
	Close              decimal.NullDecimal `json:"close"`
	PctChange          decimal.NullDecimal `json:"pct_change"`
	TurnoverRate       decimal.NullDecimal `json:"turnover_rate"`
	NetFlowAmount      decimal.NullDecimal `json:"net_flow_amount"`
	MainNetFlow        decimal.NullDecimal `json:"main_net_flow"`         // r0: 主力
	SuperLargeNetFlow  decimal.NullDecimal `json:"super_large_net_flow"`  // r1: 超大单
	LargeNetFlow       decimal.NullDecimal `json:"large_net_flow"`        // r2: 大单
	MediumSmallNetFlow decimal.NullDecimal `json:"medium_small_net_flow"` // r3: 中小单
	Code               string              `json:"code"`
}

// Numeric field names of FundFlow in canonical column order (date and code excluded)
var FundFlowNumericFields = []string{
	"close",
	"pct_change",
	"turnover_rate",
	"net_flow_amount",
	"main_net_flow",
	"super_large_net_flow",
	"large_net_flow",
	"medium_small_net_flow",
}

// Numeric returns a pointer to the numeric field with the given canonical name,
// or nil for an unknown name.
func (f *FundFlow) Numeric(name string) *decimal.NullDecimal {
	switch name {
	case "close":
		return &f.Close
	case "pct_change":
		return &f.PctChange
	case "turnover_rate":
		return &f.TurnoverRate
	case "net_flow_amount":
		return &f.NetFlowAmount
	case "main_net_flow":
		return &f.MainNetFlow
	case "super_large_net_flow":
		return &f.SuperLargeNetFlow
	case "large_net_flow":
		return &f.LargeNetFlow
	case "medium_small_net_flow":
		return &f.MediumSmallNetFlow
	}
	return nil
}

// FundFlowRepository persists and reads normalized fund-flow rows
type FundFlowRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveBatch(ctx context.Context, runID string, flows []FundFlow) (int, error)
	GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]FundFlow, error)
}
