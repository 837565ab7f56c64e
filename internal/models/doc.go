// Package models defines the core domain models for the receipt splitter.
//
// # Models
//
//   - Receipt: one purchase event, header metadata plus its items
//   - Item: one purchased line with a cost, tax/tip rates and the people sharing it
//
// People are identified by name strings. The set of people on a receipt is never
// stored; it is derived from the items every time it is asked for.
//
// # Records
//
// A Record is the map view of a model used for persistence. ItemFromRecord and
// ReceiptFromRecord validate a record and build the model from it; ToRecord goes
// the other way. Records always use the plural "users" form on write, while the
// legacy single "user" field is still accepted on read.
//
// Construction never reads process-wide configuration: the default tax rate is
// passed in through Defaults.
package models
