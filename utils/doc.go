// Package utils provides internal numeric helpers shared by the railtrips
// packages.
//
// It contains:
//   - Rounding and percentage helpers used for report figures
//   - Great-circle distance and coordinate validation
package utils
