// Package pkg provides the libraries behind dep2j, which converts Makefile
// dependency rules into a JSON document.
//
// # Overview
//
// Compilers such as gcc write dependency files ("gcc -MD") containing rules
// of the form
//
//	main.o: main.c file1.h \
//	  file2.h
//
// dep2j reads any number of such files and emits one JSON array of
// {"target", "prerequisites"} objects. The pkg directory is organized as:
//
//  1. [depfile] - lexer and rule parser
//  2. [model] - merging rules per target, in first-appearance order
//  3. [io] - JSON serialization and atomic file output
//  4. [pipeline] - orchestration (load → parse → merge → render)
//  5. [cache], [config], [errors], [observability] - supporting infrastructure
//  6. [render] - Graphviz DOT and SVG projections of a merged model
//
// # Data Flow
//
//	dependency files / stdin
//	         ↓
//	    [source] (named byte sources, in order)
//	         ↓
//	    [depfile] (tokens → raw rules, one source at a time)
//	         ↓
//	    [model] (merge: first appearance fixes position, prerequisites deduplicated)
//	         ↓
//	    [io] (JSON array, stdout or file)
//
// # Quick Start
//
//	rules, err := depfile.Parse("main.d", data)
//	if err != nil {
//	    return err
//	}
//	b := model.NewBuilder()
//	b.AddAll(rules)
//	return io.WriteJSON(b.Build(), os.Stdout, io.Format{})
//
// For multiple sources with parallel parsing and caching, use
// [pipeline.Runner].
package pkg
