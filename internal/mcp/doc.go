// Package mcp implements the Model Context Protocol server for mdkb using
// the mcp-go library.
//
// It exposes the document store's operations as a fixed set of MCP tools
// (create_file, read_file, update_file, delete_file, list_files,
// search_content) plus one discoverable resource, the LLM usage guide. The
// server communicates over stdio by default, or over streamable HTTP.
//
// Dispatch is table-driven: every operation is a closed enum variant with a
// declared argument shape, and unknown names are rejected at the boundary
// with a soft textual reply so a conversational caller is never cut off.
package mcp
