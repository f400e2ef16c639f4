// Package export writes normalized fund-flow rows to on-disk artifacts.
// Every format shares the base name fundflow_<symbol>.
package export

import (
	"os"
	"path/filepath"

	"github.com/wonny/fundflow/internal/contracts"
)

// Writer persists rows in one file format
type Writer interface {
	Format() string
	Ext() string
	Write(path string, rows []contracts.FundFlow) error
}

// BaseName returns the shared file stem for a symbol
func BaseName(symbol string) string {
	return "fundflow_" + symbol
}

// Path returns <dir>/fundflow_<symbol>.<ext> for a writer
func Path(dir, symbol string, w Writer) string {
	return filepath.Join(dir, BaseName(symbol)+"."+w.Ext())
}

// EnsureDir creates the output directory when missing
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Columns is the fixed header of every tabular artifact
var Columns = []string{
	"date",
	"close",
	"pct_change",
	"turnover_rate",
	"net_flow_amount",
	"main_net_flow",
	"super_large_net_flow",
	"large_net_flow",
	"medium_small_net_flow",
	"code",
}

const dateLayout = "2006-01-02"
