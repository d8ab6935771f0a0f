package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/persistorai/friendgraph/internal/crawl"
	"github.com/persistorai/friendgraph/internal/models"
)

// readGraph loads a node-link file ("-" for stdin) and replays it into a graph.
func readGraph(path string) (*models.Graph, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening graph file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var nl models.NodeLink
	if err := json.NewDecoder(r).Decode(&nl); err != nil {
		return nil, fmt.Errorf("decoding node-link graph: %w", err)
	}

	return crawl.Replay(nl), nil
}

// writeGraph writes g as node-link JSON to path, or to w when path is empty or "-".
func writeGraph(w io.Writer, path string, g *models.Graph) error {
	return writeNodeLink(w, path, models.ToNodeLink(g))
}

func writeNodeLink(w io.Writer, path string, nl models.NodeLink) (err error) {
	if path != "" && path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("creating output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(nl); err != nil {
		return fmt.Errorf("encoding node-link graph: %w", err)
	}
	return nil
}
