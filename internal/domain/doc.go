// Package domain contains shared domain types used across entity sub-packages.
// Entity-specific types live in sub-packages (domain/order, domain/user).
// This root package holds sentinel errors, validation types, domain events,
// and the system-wide metrics snapshot shared across all entities.
package domain
