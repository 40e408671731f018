// Package utils provides tolerant type coercion and unit conversion helpers.
//
// Wearable provider payloads are loosely typed: the same metric may arrive as a
// number, a string, a {"value": x} wrapper or a one-element list depending on
// the provider and API version. The Coerce* functions absorb those shapes and
// report failure through an ok flag instead of an error, so an unparseable
// field degrades to "no value" rather than failing the whole day.
//
// Unit conversions follow the canonical schema: durations in whole minutes,
// distances in kilometers with two decimals, speeds in km/h with a derived
// min/km pace. All rounding is half up.
package utils
