// Package depfile lexes and parses Makefile-style dependency files.
//
// # Overview
//
// Compilers emit dependency files (gcc -M, -MD, -MMD, clang, many code
// generators) that describe which files an output depends on:
//
//	main.o: main.c include/util.h \
//	  include/my\ header.h
//	include/util.h:
//
// This package turns such text into an ordered list of [RawRule] values,
// one per target. It understands only the dependency subset of make: rules,
// comments, blank lines, line continuations and backslash escapes. Recipes,
// variables, functions and directives are not recognized.
//
// # Lexing
//
// [Lexer] is a byte-level state machine that produces [Token] values on
// demand. Names are split on unescaped spaces and tabs. The first unescaped
// ':' on a logical line separates targets from prerequisites. A '#' starts a
// comment that runs to the end of the logical line.
//
// Escapes:
//
//   - "\ " and "\<tab>" keep the blank inside the name
//   - "\:" and "\#" keep the character literally
//   - "\" before a newline (LF or CRLF) continues the logical line
//   - "\" before any other byte is a literal backslash
//
// A backslash as the last byte of the input is malformed.
//
// # Parsing
//
// [Parse] runs the lexer and groups tokens into rules. A line with several
// targets produces one [RawRule] per target, each holding its own copy of
// the prerequisites. Duplicate prerequisites and repeated targets are kept
// as written; merging is left to the caller.
//
// # Errors
//
// Syntax violations are reported as MALFORMED_INPUT errors from
// [github.com/matzehuels/dep2j/pkg/errors] carrying the source name, the
// 1-based line and the 0-based byte offset. Parsing stops at the first error
// and returns no rules.
package depfile
