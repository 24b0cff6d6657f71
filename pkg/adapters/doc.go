// Package adapters contains the concrete resource adapters the engine
// orchestrates: the site filesystem, the Apache web server (vhosts, service
// control, hosts file), the MySQL/MariaDB engine, and the wp-cli installer.
//
// Adapters treat their underlying commands as fallible external calls: a
// non-zero exit or unreachable service is an error carrying the tool's own
// diagnostic output, never a silent no-op. External commands are always
// argument vectors through the runner seam, and SQL reaches the engine over
// a driver connection, so no user-supplied value is ever interpolated into
// a shell command.
package adapters
