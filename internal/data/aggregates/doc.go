// Package aggregates implements the domain aggregate repository on gorm.
//
// Every write owns one transaction covering the root row, its singleton and
// collection rows and the derived counters. Reads hydrate every slot with one
// query per slot.
package aggregates
