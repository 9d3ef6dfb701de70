// Package models defines the core domain models for the fee ledger.
//
// # Models
//
//   - FeeChallan: one periodic fee obligation of a student for a month/year
//   - Student: the directory record a challan refers to (class, section, discount)
//   - Statement: a student's challans with the outstanding total, as served to readers
//
// # Design Principles
//
// 1. **Money is decimal**: every amount is a decimal.Decimal rounded to two places
// 2. **IDs, not pointers**: challans reference students by ID only
// 3. **Invariants live with the data**: FeeChallan.CheckInvariants is the single
//    definition of a consistent challan, and every store calls it before writing
//
// # Challan lifecycle
//
//	pending --(due date passes, sweep)--> overdue
//	pending/overdue --(partial payment)--> pending
//	pending/overdue --(balance reaches 0)--> paid
package models
