package invoice

import (
	"testing"

	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeholderMap(ps []Placeholder) map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Token] = p.Value
	}
	return m
}

func TestRecord_Placeholders(t *testing.T) {
	record := &Record{
		ClientInfo: ClientInfo{Name: "Acme", Phone: "1", Email: "a@b.c", Address: "Street"},
		Details:    Details{Number: "INV2025007", IssueDate: "01.05.2025", DueDate: "08.05.2025"},
		Financials: Financials{Subtotal: "Rp 1,000", GrandTotal: "Rp 1,020", LateFee: "Rp 20"},
	}

	t.Run("late fee applied", func(t *testing.T) {
		record.ApplyLateFee = true
		m := placeholderMap(record.Placeholders())

		assert.Equal(t, "Acme", m[TokenClientName])
		assert.Equal(t, "INV2025007", m[TokenInvoiceNumber])
		assert.Equal(t, "Rp 20", m[TokenLateFee])
		assert.Equal(t, LateFeeLabel, m[TokenLateFeeLabel])
		assert.Len(t, m, 13)
	})

	t.Run("late fee not applied blanks label and amount", func(t *testing.T) {
		record.ApplyLateFee = false
		ps := record.Placeholders()

		last := ps[len(ps)-2:]
		assert.Equal(t, Placeholder{TokenLateFeeLabel, ""}, last[0])
		assert.Equal(t, Placeholder{TokenLateFee, ""}, last[1])
	})
}

func TestRecord_MarkPaid(t *testing.T) {
	record := &Record{InvoiceNumber: "INV2025001"}
	assert.Equal(t, "Not Paid", record.StatusLabel())

	require.NoError(t, record.MarkPaid())
	assert.True(t, record.MarkAsPaid)
	assert.Equal(t, "Paid", record.StatusLabel())

	err := record.MarkPaid()
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRecord_FileBaseName(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{
			name:     "unpaid",
			record:   Record{InvoiceNumber: "INV2025001", ClientInfo: ClientInfo{Name: "Acme Corp"}},
			expected: "Invoice_INV2025001_Acme_Corp",
		},
		{
			name:     "paid with unsafe characters",
			record:   Record{InvoiceNumber: "INV2025002", MarkAsPaid: true, ClientInfo: ClientInfo{Name: `PT A/B: "X"?`}},
			expected: "Paid_Invoice_INV2025002_PT_A_B___X__",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.FileBaseName())
		})
	}
}

func TestNumbering(t *testing.T) {
	n := NewNumbering("")
	assert.Equal(t, DefaultNumberPrefix, n.Prefix())

	number, seq := n.Next(0)
	assert.Equal(t, "INV2025001", number)
	assert.Equal(t, 1, seq)

	number, seq = n.Next(41)
	assert.Equal(t, "INV2025042", number)
	assert.Equal(t, 42, seq)

	number, _ = n.Next(1233)
	assert.Equal(t, "INV20251234", number)

	prev := ""
	for i := 0; i < 20; i++ {
		number, _ := n.Next(i)
		assert.Greater(t, number, prev)
		prev = number
	}

	assert.True(t, n.Valid("INV2025999"))
	assert.False(t, n.Valid("inv2025001"))
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in   string
		want StatusFilter
		ok   bool
	}{
		{"", StatusAll, true},
		{"ALL", StatusAll, true},
		{"paid", StatusPaid, true},
		{" Unpaid ", StatusUnpaid, true},
		{"overdue", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStatusFilter(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	paid := &Record{MarkAsPaid: true}
	unpaid := &Record{}
	assert.True(t, StatusPaid.Matches(paid))
	assert.False(t, StatusPaid.Matches(unpaid))
	assert.True(t, StatusUnpaid.Matches(unpaid))
	assert.True(t, StatusAll.Matches(paid))
}
