// Package mcp exposes the thought store and analyzer as an MCP server.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and registers the process_thought, generate_summary, clear_history,
// export_session, import_session and get_thoughts_by_stage tools plus one
// prompt per coding stage. Tool failures are returned as error results
// carrying {"error": ..., "status": "failed"} rather than protocol errors.
//
// process_thought accepts payloads from older clients: camelCase argument
// names, nested legacy_kwargs/extra_kwargs objects, numeric strings and
// delimited lists are all normalized before a thought is built.
package mcp
