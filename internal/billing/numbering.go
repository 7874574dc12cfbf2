package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefixInvoice     = "INV"
	prefixExpenditure = "EXP"
	prefixMedical     = "MED"
)

// NewNumber returns PREFIX-YYYYMMDD-XXXXXXXX with a random upper-hex suffix.
func NewNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix)
}

// AppointmentInvoiceNumber returns INV-APT-<unix millis>.
func AppointmentInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-APT-%d", now.UnixMilli())
}
