// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command graphsearch serves bounded path and radial neighborhood queries
// over a relationship graph loaded from CSV.
//
// Usage:
//
//	graphsearch serve --dataset rels.csv
//	graphsearch build --dataset rels.csv --snapshot-dir ./snapshots
//	graphsearch paths <start> <end> --dist 4
//	graphsearch radial <node> --degree 2 --show-data
//
// Example requests:
//
//	# All walks of up to 4 edges
//	curl 'http://localhost:5001/paths?start=a&end=c&dist=4'
//
//	# Neighborhood with the edge list
//	curl 'http://localhost:5001/v1/graph/radial?node=a&degree=2&mode=showdata'
//
// Configuration is read from ./graphsearch.yaml (created on first run) or
// the file named by --config. Flags override file values.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
