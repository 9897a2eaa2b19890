package reports

import (
	"fmt"
	"io"

	"github.com/huastex/huastex_backend/pos"
	"github.com/xuri/excelize/v2"
)

const (
	ledgerSheet  = "Movimientos"
	summarySheet = "Resumen"
)

var ledgerHeadings = []string{"Fecha", "Tipo", "Nombre", "Producto", "Forma de pago", "Importe", "Saldo", "Por pagar", "Sucursal", "Cajero"}

func transactionTypeLabel(t pos.TransactionType) string {
	if t == pos.TransactionTypeOutcome {
		return "Egreso"
	}
	return "Ingreso"
}

// ExportDailyCashReport writes the report as an xlsx workbook with the ledger
// rows on one sheet and the drawer totals on another.
func ExportDailyCashReport(report *DailyCashReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return err
	}
	col := 'A'
	for _, h := range ledgerHeadings {
		f.SetCellValue(ledgerSheet, string(col)+"1", h)
		col++
	}
	for i, t := range report.Transactions {
		row := fmt.Sprint(i + 2)
		label := ""
		if t.PaymentType != "" {
			label = t.PaymentType.Label()
		}
		f.SetCellValue(ledgerSheet, "A"+row, t.TransactionDate.Format("2006-01-02"))
		f.SetCellValue(ledgerSheet, "B"+row, transactionTypeLabel(t.TransactionType))
		f.SetCellValue(ledgerSheet, "C"+row, t.Name)
		f.SetCellValue(ledgerSheet, "D"+row, t.Product)
		f.SetCellValue(ledgerSheet, "E"+row, label)
		f.SetCellValue(ledgerSheet, "F"+row, t.Value.InexactFloat64())
		f.SetCellValue(ledgerSheet, "G"+row, t.Saldo.InexactFloat64())
		f.SetCellValue(ledgerSheet, "H"+row, t.PorPagar.InexactFloat64())
		f.SetCellValue(ledgerSheet, "I"+row, t.Location)
		f.SetCellValue(ledgerSheet, "J"+row, t.CashierName)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rowNo := 1
	put := func(label string, value any) {
		f.SetCellValue(summarySheet, "A"+fmt.Sprint(rowNo), label)
		f.SetCellValue(summarySheet, "B"+fmt.Sprint(rowNo), value)
		rowNo++
	}
	put("Fecha", report.Date.Format("2006-01-02"))
	put("Sucursal", report.Location)
	put("Total ingresos", report.TotalIn.InexactFloat64())
	put("Total egresos", report.TotalOut.InexactFloat64())
	put("Neto en caja", report.Net.InexactFloat64())
	if report.CountedAmount != nil {
		put("Cantidad contada", report.CountedAmount.InexactFloat64())
	}
	if report.Difference != nil {
		put("Diferencia", report.Difference.InexactFloat64())
	}
	rowNo++
	for _, b := range report.ByPaymentType {
		put(fmt.Sprintf("%s (%d)", b.Label, b.Count), b.Total.InexactFloat64())
	}

	_, err := f.WriteTo(w)
	return err
}
