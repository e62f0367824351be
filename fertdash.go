// Package fertdash compares fertilizer products by N-P-K content and cost.
//
// Layout:
//
//	schema/     canonical columns and header resolution
//	loader/     file → Dataset (encodings, parsing, cache, file watching)
//	engine/     metrics, filters and render-ready output; pure, no I/O
//	dashboard/  HTTP front end, SVG charts, Prometheus metrics
//	config/     YAML configuration
//	cmd/        the fertdash CLI
//
// The engine never reads files and never talks to the network: the loader
// hands it records, the dashboard hands it selections.
package fertdash
