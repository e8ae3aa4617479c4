// Package bulk implements the spreadsheet import/export pipeline: a
// config-driven registry of importable entity types, a streaming tabular
// reader, a two-phase validate/apply engine with chunked commits, an
// annotated error-report generator, and the export/template builders.
//
// The package has no HTTP dependencies. It talks to the datastore and to
// blob storage through the Store, JobStore and Blob interfaces so it can be
// driven by any frontend and tested against fakes.
package bulk
