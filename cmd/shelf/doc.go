// Command shelf lists, searches, manages and launches portable apps.
//
// Usage:
//
//	shelf list [--filter all|favorites|recent]
//	shelf launch <name> [--admin]
//	shelf search <term>
//	shelf favorites
//	shelf recent
//	shelf add <path>
//	shelf remove <name> [--purge [--yes]]
//	shelf info <name>
//	shelf rename <name> <new-name>
//	shelf favorite <name> [--off]
//	shelf scan
//	shelf stats
//
// Global flags: --config <file>, --remote <url>, --json, --debug.
package main
