package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/calyx-ml/graphir/internal/ir"
)

// Conversion is one cached conversion result.
type Conversion struct {
	ID          string // uuid
	DocHash     string // SHA-256 of the document bytes, hex
	GraphName   string
	IRVersion   int64
	NodeCount   int
	ParamCount  int
	ResultCount int
	SinkCount   int
	OpsetCensus string // "opset1=12,opset5=1"
	Seq         int64
	CreatedAt   string
}

// HashDocument returns the hex SHA-256 of the raw document bytes.
// The hash identifies the document, not the graph it produced.
func HashDocument(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CensusOf summarizes a graph's opset usage as a stable
// "name=count,name=count" string sorted by opset name.
func CensusOf(g *ir.Graph) string {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[n.OpsetName]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, ",")
}
