package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Record
		wantOK bool
	}{
		{
			name: "complete payload",
			raw:  `{"vendor_name":"Acme","invoice_date":"01.02.2024","invoice_number":"INV-7","total_amount":"100.00"}`,
			want: Record{
				VendorName:    "Acme",
				InvoiceDate:   "01.02.2024",
				InvoiceNumber: "INV-7",
				TotalAmount:   "100.00",
			},
			wantOK: true,
		},
		{
			name: "missing fields are normalized to sentinel",
			raw:  `{"vendor_name":"Acme"}`,
			want: Record{
				VendorName:    "Acme",
				InvoiceDate:   NotAvailable,
				InvoiceNumber: NotAvailable,
				TotalAmount:   NotAvailable,
			},
			wantOK: true,
		},
		{
			name:   "malformed JSON falls back to default",
			raw:    "the model returned prose instead of JSON",
			want:   DefaultRecord(),
			wantOK: false,
		},
		{
			name:   "empty payload falls back to default",
			raw:    "",
			want:   DefaultRecord(),
			wantOK: false,
		},
		{
			name: "empty strings are normalized",
			raw:  `{"vendor_name":"","invoice_date":"","invoice_number":"","total_amount":""}`,
			want: DefaultRecord(),
			// Valid JSON, so parsing itself succeeded.
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRecord(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMerge(t *testing.T) {
	first := Record{
		VendorName:    "Acme",
		InvoiceDate:   NotAvailable,
		InvoiceNumber: "INV-7",
		TotalAmount:   NotAvailable,
	}
	second := Record{
		VendorName:    "Other Corp",
		InvoiceDate:   "01.02.2024",
		InvoiceNumber: NotAvailable,
		TotalAmount:   "100.00",
	}

	got := first.Merge(second)

	// Fields already present on the receiver win; sentinels are filled in.
	assert.Equal(t, Record{
		VendorName:    "Acme",
		InvoiceDate:   "01.02.2024",
		InvoiceNumber: "INV-7",
		TotalAmount:   "100.00",
	}, got)
}

func TestDefaultRecordHasAllFields(t *testing.T) {
	rec := DefaultRecord()
	assert.Equal(t, NotAvailable, rec.VendorName)
	assert.Equal(t, NotAvailable, rec.InvoiceDate)
	assert.Equal(t, NotAvailable, rec.InvoiceNumber)
	assert.Equal(t, NotAvailable, rec.TotalAmount)
}
