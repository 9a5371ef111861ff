// Package launcher prepares a development environment and hands control to
// the backend and frontend processes.
//
// A launch is always the same sequence: ensure the environment directory
// exists (created at most once), run every install step, assemble the
// process environment, then exec the target command in the foreground.
// Up runs both targets, starting the frontend only once the backend
// answers its health endpoint.
package launcher
