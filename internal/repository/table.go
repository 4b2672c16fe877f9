package repository

import (
	"fmt"
	"regexp"
)

// DefaultTable is the single table written and read by every backend.
const DefaultTable = "stock_prices"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// ValidateTable rejects names that cannot be safely interpolated into DDL/DML.
func ValidateTable(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// upsertChunkSize bounds rows per INSERT statement (7 bind params per row).
const upsertChunkSize = 1000
