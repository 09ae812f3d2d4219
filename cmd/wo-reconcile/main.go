// wo-reconcile prints the material reconciliation of one work order and can
// write the BOM requirement workbook next to it. Read-only.
//
// Usage (from backend directory):
//
//	go run ./cmd/wo-reconcile -work-order-id 42 [-xlsx out.xlsx] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/models/reports"
)

func main() {
	workOrderID := flag.Int("work-order-id", 0, "Required: work order id")
	xlsxPath := flag.String("xlsx", "", "Optional: write the BOM requirement workbook to this path")
	asJSON := flag.Bool("json", false, "Print the reconciliation as JSON")
	flag.Parse()

	if *workOrderID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	rec, err := models.GetWorkOrderReconciliation(ctx, *workOrderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"reconciliation": rec, "summary": rec.Summary()}); err != nil {
			fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		printTable(rec)
	}

	if *xlsxPath != "" {
		f, err := reports.ExportBomRequirements(ctx, *workOrderID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := f.SaveAs(*xlsxPath); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *xlsxPath)
	}
}

func printTable(rec *models.Reconciliation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tITEM\tREQUIRED\tAVAILABLE\tCLASS\tSHORTFALL\tISSUED\tREQUESTED")
	for _, l := range rec.Lines() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%t\t%t\n",
			l.LineKey, l.ItemId, l.Required.String(), l.Available.String(),
			l.Classification, l.Shortfall.String(), l.Issued, l.Requested)
	}
	_ = w.Flush()

	s := rec.Summary()
	fmt.Printf("\nlines=%d sufficient=%d insufficient=%d issued=%d requested=%d uncovered=%d unbound_items=%d all_covered=%t\n",
		s.TotalLines, s.SufficientLines, s.InsufficientLines, s.IssuedLines, s.RequestedLines,
		s.UncoveredLines, s.UnboundItems, s.AllCovered)
}
