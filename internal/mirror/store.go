// Package mirror implements the on-device fallback store: one JSON-array
// file per collection key, read and rewritten in full on every access. It is
// never authoritative; the remote database is.
package mirror

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	OrdersKey   = "shawarma_timaro_orders"
	ProductsKey = "shawarma_timaro_products"
)

// readCollection loads the JSON array stored under path into out. A missing
// file or unparseable content reads as "no data": out is left empty and the
// corruption is logged, never raised.
func readCollection(path string, out any, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read mirror file", "path", path, "error", err)
		}
		return
	}

	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("discarding corrupt mirror file", "path", path, "error", err)
	}
}

func writeCollection(path string, in any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
