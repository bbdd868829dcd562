// Package core imports product catalogs and hub inventories from
// spreadsheets.
//
// This package holds all of the import logic, independent of any transport.
// It is used by the HTTP server, the command line tool and tests without
// modification.
//
// # Pipeline
//
// An import is a [Run] opened by an [Importer]:
//
//  1. [Importer.Open] reads a CSV or XLSX file into one [Entry] per data row.
//     Unknown columns are ignored; line numbers count the header as line 1.
//  2. The [EntryValidator] resolves names (suppliers, producers, categories)
//     through [SpreadsheetData], checks permissions, converts units and
//     classifies each entry as a new product, new variant, existing variant,
//     new inventory item or existing inventory item. An entry with errors
//     has no classification.
//  3. The [EntryProcessor] applies supplier defaults and saves classified
//     entries one at a time. A failed save only fails its own row.
//  4. Suppliers opted into reset_all_absent have the stock of every item the
//     run did not touch set to zero, once per import target.
//
// Large files may be saved in stages with [Run.SaveEntriesInRange], passing
// the touched ids from stage to stage and finishing with [Run.ResetAbsent].
//
//	run := importer.Open(ctx, core.Source{Name: "stock.csv", Reader: f}, user, settings)
//	run.SaveEntries(ctx)
//	results := run.SaveResults()
//
// # Storage
//
// The pipeline talks to [Catalog], [LookupSource] and [Permissions].
// [PostgresCatalog] and [PostgresPermissions] implement them with pgx.
// [Service] adds stored uploads, a concurrency limit and timeouts on top.
//
// # Error Handling
//
// Nothing in a run returns an error to the caller. Row problems become
// [ValidationError] values on the entry; file and run problems become
// top-level messages. Technical errors are mapped to user-friendly text with
// [MapError]:
//
//   - DB001-DB008: Database errors (duplicates, constraints, connections)
//   - FILE001-FILE004: File errors (size, type, unreadable)
//   - IMP001-IMP005: Import errors (busy, unknown upload, settings, permissions, reset)
//   - REQ001-REQ002: Request cancelled or timed out
package core
