// Package models contains the GORM persistence models of the cash ledger.
// Domain entities carry no ORM tags; each model converts to and from its
// entity with ToDomain and FromDomain.
package models
