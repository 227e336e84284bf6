// Package mcp exposes the engine's messages as Model Context Protocol tools.
//
// The get_candidates tool answers [engine.GetCandidates], and the
// select_candidate tool answers [engine.SelectCandidate]. Selections can be
// remembered as the global preference, which is refused while a time rule is
// active.
package mcp

const (
	name         = "chipper"
	instructions = `MCP Server 'chipper' selects the content-category chip shown on the open page.

Workflow:
1. Use 'get_candidates' to list the chips the page currently shows, along with any temporary fallback chipper chose because the preferred chip was missing.
2. Use 'select_candidate' with the EXACT text of one of the listed chips.
3. Set 'remember' to make the selection the global preference. This is refused while a time rule is active.
`
)
