// Package types holds the user model shared by the storage, service and
// HTTP layers. It imports nothing from the rest of the module.
package types

// Address is the structured value kept in the users.address column.
// It is always serialized as JSON when written and decoded back into this
// struct when read; callers never see the raw column text.
type Address struct {
	City  string `json:"city"`
	House string `json:"house"`
}

// User represents a row in the users table.
//
// ID is assigned by the store on insert and never changes afterwards.
// Email is unique across all rows (enforced by a UNIQUE constraint).
type User struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Age     int     `json:"age"`
	Address Address `json:"address"`
}

// FallbackAddress is returned in place of a stored address that cannot be
// decoded.
var FallbackAddress = Address{City: "Unknown", House: "Unknown"}
