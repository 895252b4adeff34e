// Package dataset loads the raw monthly sales CSVs into domain records.
//
// The loader is schema-strict: required columns are located by header name
// (order and extra columns do not matter), and the first violation aborts
// the load with a SchemaError naming the column and row. No partially
// parsed batch ever reaches the pipeline.
//
// Two inputs are supported:
//
//   - state sales: state, date, vehicle_category, electric_vehicles_sold,
//     total_vehicles_sold
//   - maker sales: date, vehicle_category, maker, electric_vehicles_sold
//
// Dates parse as 2006-01-02 or 02-Jan-06. Vehicle categories normalise to
// the two canonical labels; unknown categories are schema violations.
package dataset
