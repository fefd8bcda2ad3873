// Package dataprocessing reads raw customer and order extracts into
// record structs for downstream validation.
//
// Two parsers are provided:
//
//  1. ParseCustomersCSV reads the customer master CSV. Header names select
//     columns, so column order does not matter, and ragged rows are kept
//     for the validation layer to reject with a row reference.
//  2. ParseOrdersXML reads the order extract, a single document with
//     repeated <order> elements under an <orders> root.
//
// Both parsers are deliberately permissive: they preserve raw field values
// (including malformed ones) and only fail on I/O or structural errors such
// as a missing file or unparseable XML. Field-level cleaning and rejection
// happens in the validation package so that every discarded row can be
// reported with a reason.
package dataprocessing
