// Package infopage checks whether a server operator publishes an info page.
//
// A page counts as available when one GET returns a body containing the
// product marker, compared case-insensitively. Every failure is reported as
// "not available"; nothing is returned as an error.
package infopage
