// Package report renders reconciliation results as JSON audit reports and
// places them: locally under the configured report directory, and optionally
// in object storage for retention.
//
// Reports share one canonical filename per run (see Filename) so the local
// copy and the archived object always correspond.
package report
