// Package logging sets up rulesmith's structured logs and reads them back.
//
// Commands log JSON lines to a size-rotated file under the state directory
// (~/.rulesmith/logs by default). Without --debug nothing but warnings reach
// stderr. The MCP server logs to its own file and never to stdout or stderr,
// since stdout carries the JSON-RPC stream.
//
// The Viewer behind `rulesmith logs` tails and follows those files, merging
// several sources into one timeline.
package logging
