// Package importer turns external bank data (notification emails, exported
// CSV files) into normalized transaction DTOs ready for ingestion.
package importer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"sobres/internal/core"
)

// DedupID derives the stable import id for a parsed movement. Every source
// uses the same recipe so the same movement seen twice, even through two
// different sources, lands on one id.
func DedupID(date time.Time, payee string, amount core.Money) string {
	raw := fmt.Sprintf("%s-%s-%d", date.Format(core.DateLayout), payee, amount.Abs())
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
