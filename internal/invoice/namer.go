package invoice

import (
	"fmt"
	"strings"
	"time"
)

// FallbackExtension is used when the original filename has no extension.
const FallbackExtension = "bin"

// DeriveFilename derives the storage filename for a processed attachment:
// "DD.MM.YYYY_vendor_number_amount.ext". Pure and deterministic for a given
// (filename, record, time). No collision handling; identical names become
// distinct storage objects.
func DeriveFilename(originalFilename string, rec Record, now time.Time) string {
	ext := FallbackExtension
	if i := strings.LastIndex(originalFilename, "."); i >= 0 {
		ext = originalFilename[i+1:]
	}

	name := fmt.Sprintf("%s_%s_%s_%s.%s",
		now.Format("02.01.2006"),
		rec.VendorName,
		rec.InvoiceNumber,
		rec.TotalAmount,
		ext,
	)
	return SanitizeFilename(name)
}

// SanitizeFilename sanitizes a filename to prevent path traversal
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
