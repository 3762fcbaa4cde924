// Package optimade provides a server for the OPTIMADE materials-database API.
//
// The optimade package wires the building blocks of the module into a running
// HTTP server:
//   - A field catalogue of the structures, references and links entry types,
//     extended with provider-specific fields (NewCatalogue, NewCatalogueBuilder)
//   - One document store per entry type, in memory or in DuckDB
//   - Seed datasets in JSON or zstd-compressed MessagePack
//   - Entry collections that parse filters, paginate, sort and project
//   - HTTP routing, request metrics and optional bearer-token authentication
//
// # Quick Start
//
//	cfg, err := optimade.LoadConfig("optimade.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := optimade.NewServer(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
//	lis, err := net.Listen("tcp", cfg.Listen)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(srv.Serve(ctx, lis))
//
// # Configuration
//
// LoadConfig reads an optional file and OPTIMADE_* environment variables:
//
//	listen: ":5000"
//	page_limit: 20
//	page_limit_max: 500
//	backend: duckdb
//	duckdb:
//	  path: optimade.db
//	provider:
//	  prefix: _exmpl_
//	  name: Example provider
//	provider_fields:
//	  structures:
//	    - name: band_gap
//	      type: float
//	      sortable: true
//	dataset:
//	  structures: testdata/structures.json
//	auth:
//	  tokens:
//	    - token: secret
//	      identity: alice
//
// # Queries
//
// Entry listings accept the filter, page_limit, page_offset, sort,
// response_fields and response_format query parameters:
//
//	GET /optimade/v0.10/structures?filter=elements HAS ALL "Si","O" AND nelements<4&sort=-nsites
//
// Filters are parsed by package filter and transformed by package predicate
// into a backend-neutral predicate whose properties are storage names.
// Properties missing from the catalogue never match, except in IS UNKNOWN.
//
// # Thread Safety
//
// The catalogue, collections and stores are safe for concurrent use once
// NewServer returns.
package optimade
