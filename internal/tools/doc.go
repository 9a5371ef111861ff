// Package tools provides process execution helpers shared by the launcher.
//
// Ownership boundary:
// - captured command execution (install steps)
//
// - foreground process execution with inherited stdio (backend/frontend)
//
// - exit status extraction
package tools
