package invoice

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename replaces characters that are invalid in file names and
// spaces with underscores
func SanitizeFilename(name string) string {
	return strings.ReplaceAll(unsafeFilenameChars.ReplaceAllString(name, "_"), " ", "_")
}

// FileBaseName returns the output file name without extension, e.g.
// Paid_Invoice_INV2025001_Acme_Corp
func (r *Record) FileBaseName() string {
	prefix := "Invoice"
	if r.MarkAsPaid {
		prefix = "Paid_Invoice"
	}
	return prefix + "_" + r.InvoiceNumber + "_" + SanitizeFilename(r.ClientInfo.Name)
}
