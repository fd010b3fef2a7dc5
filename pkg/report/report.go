package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
	"github.com/ngduyd/ecommerce-payments/pkg/hashid"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

const sheetName = "Payments"

var header = []string{"Payment ID", "Order ID", "Method", "Status", "Amount", "Transaction ID", "Paid At", "Created At"}

// WritePayments renders the operator payments report as an xlsx
// workbook. A zero from/to means no bound on that side.
func WritePayments(ctx context.Context, store storage.Store, w io.Writer, from, to time.Time) error {
	payments, err := store.ListPayments(ctx)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
	}

	row := 2
	for _, p := range payments {
		if !from.IsZero() && p.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && p.CreatedAt.After(to) {
			continue
		}

		paidAt := ""
		if p.PaymentTime != nil {
			paidAt = p.PaymentTime.Format(time.RFC3339)
		}
		amount := decimal.NewFromInt(p.Amount).Div(decimal.NewFromInt(100))
		values := []interface{}{
			hashid.Encode(dispatcher.HashIDTypePayment, p.ID),
			p.OrderID,
			string(p.Method),
			string(p.Status),
			amount.StringFixed(2),
			p.TransactionID,
			paidAt,
			p.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
