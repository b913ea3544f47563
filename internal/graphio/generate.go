package graphio

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

var generatedCategories = []string{"structural", "process", "relationship"}

// Ring returns n nodes linked in a cycle.
func Ring(n int) *Document {
	doc := &Document{}
	for i := 0; i < n; i++ {
		doc.Nodes = append(doc.Nodes, dynamo.NodeInput{
			ID:       fmt.Sprintf("n%d", i),
			Category: generatedCategories[i%len(generatedCategories)],
		})
	}
	if n < 2 {
		return doc
	}
	for i := 0; i < n; i++ {
		doc.Links = append(doc.Links, dynamo.LinkInput{
			SourceID: fmt.Sprintf("n%d", i),
			TargetID: fmt.Sprintf("n%d", (i+1)%n),
		})
	}
	return doc
}

// Random returns n nodes with up to m distinct links chosen from seed.
// Self links are never generated.
func Random(n, m int, seed int64) *Document {
	rng := rand.New(rand.NewSource(seed))
	doc := &Document{}
	for i := 0; i < n; i++ {
		doc.Nodes = append(doc.Nodes, dynamo.NodeInput{
			ID:       fmt.Sprintf("n%d", i),
			Category: generatedCategories[rng.Intn(len(generatedCategories))],
		})
	}
	if n < 2 {
		return doc
	}

	seen := make(map[string]bool)
	for attempts := 0; len(doc.Links) < m && attempts < 4*m; attempts++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if a == b {
			continue
		}
		l := dynamo.LinkInput{SourceID: fmt.Sprintf("n%d", a), TargetID: fmt.Sprintf("n%d", b)}
		if seen[l.LinkID()] {
			continue
		}
		seen[l.LinkID()] = true
		doc.Links = append(doc.Links, l)
	}
	return doc
}
