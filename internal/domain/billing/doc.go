// Package billing provides the domain model for turning approved time
// records into billable hours and amounts, and for overriding those totals
// after the fact.
//
// Key Aggregates:
//   - BillingAdjustment: A manager-entered override of a user's billable
//     hours on a project for a billing period. At most one active record
//     exists per (tenant, user, project, period) key; re-adjusting the same
//     key mutates the record in place. Adjustments are never hard-deleted.
//
// Value Objects:
//   - AdjustmentKey: The composite identity of an adjustment.
//   - RateQuery: The parameters a rate lookup is resolved against.
//
// Collaborator Contracts:
//   - RateResolver: Resolves the effective hourly rate for a user/project/
//     client/date combination. Callers are expected to recover from resolver
//     failures with a configured default; billing views must render even when
//     pricing data is incomplete.
//
// The billing domain integrates with:
//   - Timesheet domain: As the read-only source of worked and billable hours
//   - Project domain: For project and client reference data
//   - Identity domain: For resource names, roles, and tenancy
package billing
