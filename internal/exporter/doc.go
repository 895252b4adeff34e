// Package exporter writes the enriched table and the derived insights to
// their persistent artifacts.
//
// Four sinks are supported:
//
// CSV: the enriched table in the fixed column order of domain.Columns(),
// with an optional UTF-8 BOM for Excel compatibility. Undefined numeric
// cells render empty.
//
// Excel: the same table plus an insights sheet, written with excelize.
//
// JSON: a versioned envelope carrying the table and the column list, with
// undefined cells rendered as null.
//
// Summary: a short human-readable run report.
//
// Any unwritable sink aborts the run with an ExportError naming the sink
// and path; a failed export is never retried, re-running the batch is the
// recovery path.
//
// Example usage:
//
//	exp := exporter.New(paths, logger, cfg.Pipeline)
//	if err := exp.ExportAll(ctx, table, insights); err != nil {
//	    return err
//	}
package exporter
