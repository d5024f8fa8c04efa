// Package graph - Bulk TSV edge-list loading.
package graph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// loadWorkers bounds the concurrency of a bulk load. Conflicting edge
// transactions are retried by the store, so more workers past this point
// mostly buy contention.
const loadWorkers = 8

// loadBatchSize is the number of parsed lines handed to one worker task.
const loadBatchSize = 256

// LoadStats summarizes a bulk load.
type LoadStats struct {
	// Edges is the number of edge lines applied.
	Edges int64
	// Skipped is the number of blank and comment lines ignored.
	Skipped int64
}

// loadLine is one parsed edge-list entry.
type loadLine struct {
	src, dst, label string
	weight          float64
	hasWeight       bool
}

// LoadTSV bulk-loads a tab-separated edge list into the graph.
//
// Each line is "src<TAB>dst", optionally followed by a label column and a
// numeric weight column. Blank lines and lines starting with '#' are
// ignored. Endpoint vertices are created idempotently before each edge, so
// the input needs no separate vertex declarations and may repeat pairs.
//
// Lines are applied concurrently in batches; the load as a whole is not
// atomic, and a failed load leaves the edges applied so far in place.
// The context cancels a load between batches.
//
// Example input:
//
//	# trust network
//	1	2
//	1	3	follows
//	2	3	follows	0.5
func (g *Graph) LoadTSV(ctx context.Context, r io.Reader) (LoadStats, error) {
	var stats LoadStats
	var edges, skipped atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(loadWorkers)

	apply := func(batch []loadLine) func() error {
		return func() error {
			for _, line := range batch {
				if _, err := g.AddVertex(line.src); err != nil {
					return err
				}
				if _, err := g.AddVertex(line.dst); err != nil {
					return err
				}
				opts := []EdgeOption{WithLabel(line.label)}
				if line.hasWeight {
					opts = append(opts, WithWeight(line.weight))
				}
				if _, err := g.AddEdge(line.src, line.dst, opts...); err != nil {
					return err
				}
				edges.Add(1)
			}
			return nil
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	batch := make([]loadLine, 0, loadBatchSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			skipped.Add(1)
			continue
		}

		line, err := parseLoadLine(raw)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", lineNo, err)
		}
		batch = append(batch, line)

		if len(batch) == loadBatchSize {
			if err := ctx.Err(); err != nil {
				break
			}
			eg.Go(apply(batch))
			batch = make([]loadLine, 0, loadBatchSize)
		}
	}
	if err := scanner.Err(); err != nil {
		eg.Wait()
		return stats, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(batch) > 0 && ctx.Err() == nil {
		eg.Go(apply(batch))
	}

	err := eg.Wait()
	stats.Edges = edges.Load()
	stats.Skipped = skipped.Load()
	if err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

// parseLoadLine splits one TSV line into its components.
func parseLoadLine(raw string) (loadLine, error) {
	cols := strings.Split(raw, "\t")
	if len(cols) < 2 {
		return loadLine{}, fmt.Errorf("expected at least 2 tab-separated columns, got %d", len(cols))
	}

	line := loadLine{
		src: strings.TrimSpace(cols[0]),
		dst: strings.TrimSpace(cols[1]),
	}
	if line.src == "" || line.dst == "" {
		return loadLine{}, fmt.Errorf("empty vertex id")
	}
	if len(cols) > 2 {
		line.label = strings.TrimSpace(cols[2])
	}
	if len(cols) > 3 {
		w, err := strconv.ParseFloat(strings.TrimSpace(cols[3]), 64)
		if err != nil {
			return loadLine{}, fmt.Errorf("bad weight %q: %v", cols[3], err)
		}
		line.weight = w
		line.hasWeight = true
	}
	return line, nil
}
