// Package invoice implements the attachment processing core: routing by
// content type, structured field extraction and derived artifact naming.
package invoice

import "encoding/json"

// NotAvailable is the sentinel value for fields that could not be extracted.
const NotAvailable = "N/A"

// Record holds the structured fields derived from an invoice attachment.
// All fields are strings and pass through as extracted; amounts and dates are
// never parsed into numeric or temporal types.
type Record struct {
	VendorName    string `json:"vendor_name"`
	InvoiceDate   string `json:"invoice_date"`
	InvoiceNumber string `json:"invoice_number"`
	TotalAmount   string `json:"total_amount"`
}

// DefaultRecord returns a record with every field set to the sentinel.
// Every fallback path uses this so a record always carries all four fields.
func DefaultRecord() Record {
	return Record{
		VendorName:    NotAvailable,
		InvoiceDate:   NotAvailable,
		InvoiceNumber: NotAvailable,
		TotalAmount:   NotAvailable,
	}
}

// ParseRecord decodes raw text as a structured record. Malformed JSON yields
// the default record and ok=false; missing or empty fields are normalized to
// the sentinel.
func ParseRecord(raw string) (Record, bool) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return DefaultRecord(), false
	}
	return rec.normalize(), true
}

// Merge fills the sentinel fields of the record from other, preferring the
// receiver's values. Used to combine per-page extraction results in page
// order.
func (r Record) Merge(other Record) Record {
	if r.VendorName == NotAvailable {
		r.VendorName = other.VendorName
	}
	if r.InvoiceDate == NotAvailable {
		r.InvoiceDate = other.InvoiceDate
	}
	if r.InvoiceNumber == NotAvailable {
		r.InvoiceNumber = other.InvoiceNumber
	}
	if r.TotalAmount == NotAvailable {
		r.TotalAmount = other.TotalAmount
	}
	return r
}

func (r Record) normalize() Record {
	if r.VendorName == "" {
		r.VendorName = NotAvailable
	}
	if r.InvoiceDate == "" {
		r.InvoiceDate = NotAvailable
	}
	if r.InvoiceNumber == "" {
		r.InvoiceNumber = NotAvailable
	}
	if r.TotalAmount == "" {
		r.TotalAmount = NotAvailable
	}
	return r
}
