// Package interview runs the question-tree interview.
//
// Ownership boundary:
// - per-session answer memory
// - step selection over a questions.Tree
// - briefing generation and persistence hand-off
//
// Transport concerns live in internal/server.
package interview
