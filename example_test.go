package annoyforest_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/annoyforest"
)

// Example_angularBuilder demonstrates creating an angular-distance forest
// with the fluent builder.
func Example_angularBuilder() {
	f := annoyforest.Angular(128). // 128-dimensional vectors
					Trees(50). // number of randomized trees
					Seed(7).   // deterministic splits
					MustNew()
	_ = f

	fmt.Println("forest created successfully")
	// Output: forest created successfully
}

// Example_addItemAndBuild demonstrates populating a forest and building it.
func Example_addItemAndBuild() {
	ctx := context.Background()

	f, err := annoyforest.Euclidean(3).New()
	if err != nil {
		log.Fatal(err)
	}

	if err := f.AddItem(0, []float32{1.0, 2.0, 3.0}); err != nil {
		log.Fatal(err)
	}
	if err := f.AddItem(1, []float32{1.1, 2.1, 3.1}); err != nil {
		log.Fatal(err)
	}

	if err := f.Build(ctx, 10); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("built forest with %d items\n", f.GetNItems())
	// Output: built forest with 2 items
}

// Example_search demonstrates basic KNN search over a built forest.
func Example_search() {
	ctx := context.Background()

	f, _ := annoyforest.Euclidean(3).New()
	_ = f.AddItem(0, []float32{1.0, 2.0, 3.0})
	_ = f.AddItem(1, []float32{10.0, 20.0, 30.0})
	_ = f.Build(ctx, 10)

	results, err := f.Search([]float32{1.0, 2.0, 3.0}).KNN(1).Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("nearest item: %d\n", results[0].ID)
	// Output: nearest item: 0
}

// Example_saveAndLoad demonstrates persisting a built forest and reopening
// it as a memory-mapped, read-only index.
func Example_saveAndLoad() {
	ctx := context.Background()
	dim := 3

	f, _ := annoyforest.Angular(dim).New()
	_ = f.AddItem(0, []float32{1, 0, 0})
	_ = f.AddItem(1, []float32{0, 1, 0})
	_ = f.Build(ctx, 5)

	path, err := os.MkdirTemp("", "annoyforest-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(path)

	forestPath := path + "/forest.bin"
	if err := f.Save(forestPath); err != nil {
		log.Fatal(err)
	}

	loaded, _ := annoyforest.Angular(dim).New()
	if err := loaded.Load(forestPath, false); err != nil {
		log.Fatal(err)
	}
	defer loaded.Close()

	fmt.Printf("loaded %d items, phase=%s\n", loaded.GetNItems(), loaded.Phase())
	// Output: loaded 2 items, phase=loaded
}
