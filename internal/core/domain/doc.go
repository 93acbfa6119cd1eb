// Package domain contains the core business entities and rules for the
// document-intelligence pipeline. It has no dependencies on other
// packages in this module.
package domain
