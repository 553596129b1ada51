// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// levelMarker separates BFS levels in the radial work queue.
type levelMarker struct{}

// RadialNeighborhood returns the edges reachable from source within degree hops.
//
// Description:
//
//	Breadth-first search over a FIFO work queue seeded with the source and a
//	level marker. Popping a marker advances the current degree; the search
//	stops once the degree reaches the bound or nothing but a marker is left.
//	Each expanded node contributes every outgoing edge whose relationship id
//	has not been seen yet, so the result never holds two edges with the same
//	relationship id. A forward edge and its synthesized reverse carry
//	different ids ("r1" and "-r1") and may both appear.
//
// Inputs:
//
//	ctx - Context for cancellation, checked every 100 expansions.
//	source - External id of the center node (case-insensitive).
//	degree - Maximum hop count. 0 returns no edges.
//
// Outputs:
//
//	*RadialResult - Edges in discovery order, rendered with external ids.
//	error - ErrUnknownID, ErrInvalidBound, ErrQueryCancelled, or a store error.
//
// Thread Safety: Safe for concurrent use.
func (g *Graph) RadialNeighborhood(ctx context.Context, source string, degree int) (*RadialResult, error) {
	start := time.Now()
	ctx, span := startQuerySpan(ctx, "RadialNeighborhood", source, degree)
	defer span.End()

	res, err := g.radial(ctx, source, degree)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("graph.edge_count", res.EdgeCount),
		attribute.Int("graph.nodes_visited", res.NodesVisited),
	)
	recordQueryMetrics(ctx, "radial", time.Since(start), res.EdgeCount)
	return res, nil
}

func (g *Graph) radial(ctx context.Context, source string, degree int) (*RadialResult, error) {
	if degree < 0 {
		return nil, fmt.Errorf("%w: degree %d", ErrInvalidBound, degree)
	}
	src, err := g.resolve(source)
	if err != nil {
		return nil, err
	}

	res := &RadialResult{Graph: []EdgeTuple{}}
	if degree == 0 {
		return res, nil
	}

	queue := linkedlistqueue.New()
	queue.Enqueue(src)
	queue.Enqueue(levelMarker{})

	visited := make(map[NodeID]struct{})
	seenRels := make(map[string]struct{})
	current := 0
	expansions := 0

	for !queue.Empty() {
		item, _ := queue.Dequeue()
		if current >= degree {
			break
		}

		if _, ok := item.(levelMarker); ok {
			if queue.Empty() {
				break
			}
			current++
			queue.Enqueue(levelMarker{})
			continue
		}

		node := item.(NodeID)
		if _, ok := visited[node]; ok {
			continue
		}
		visited[node] = struct{}{}
		res.NodesVisited++

		edges, err := g.store.Get(node)
		if err != nil {
			return nil, fmt.Errorf("get adjacency of %s: %w", node, err)
		}

		var from string
		for _, edge := range edges {
			expansions++
			if expansions%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrQueryCancelled, err)
				}
			}

			if _, seen := seenRels[edge.RelationshipID]; seen {
				res.RepeatedEdges++
			} else {
				seenRels[edge.RelationshipID] = struct{}{}
				if from == "" {
					if from, err = g.ids.Decompress(node); err != nil {
						return nil, err
					}
				}
				to, err := g.ids.Decompress(edge.To)
				if err != nil {
					return nil, err
				}
				res.Graph = append(res.Graph, EdgeTuple{
					Source:         from,
					Destination:    to,
					Relation:       edge.Relation,
					RelationshipID: edge.RelationshipID,
				})
			}

			if _, ok := visited[edge.To]; !ok {
				queue.Enqueue(edge.To)
			}
		}
	}

	res.EdgeCount = len(res.Graph)
	return res, nil
}
