// pipeline-demo runs the full decoration and suggestion flow against an
// HTML timeline snapshot using the local generator, without any network
// or clipboard access. Useful for checking a selector profile against a
// saved copy of the host page.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/replypilot/replypilot/internal/extractor"
	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/suggest"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: pipeline-demo <snapshot.html> [selector-profile.yaml]")
	}

	selectors := hostpage.DefaultSelectors()
	if len(os.Args) > 2 {
		var err error
		selectors, err = hostpage.LoadSelectors(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to load selector profile: %v", err)
		}
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to open snapshot: %v", err)
	}
	defer f.Close()

	page, err := hostpage.Parse(f)
	if err != nil {
		log.Fatalf("Failed to parse snapshot: %v", err)
	}

	ext := extractor.New(selectors)
	posts := hostpage.FindAll(page.Body(), selectors.Post)
	fmt.Printf("Found %d post containers\n\n", len(posts))

	st := models.DefaultSettings()
	st.Provider = models.ProviderLocal
	engine := suggest.NewEngine(nil)

	for i, post := range posts {
		content := ext.Extract(post)
		fmt.Printf("── Post %d ──────────────────\n", i+1)
		fmt.Printf("  author:   %q\n", content.Author)
		fmt.Printf("  text:     %q\n", content.Text)
		fmt.Printf("  tags:     %v\n", content.Tags)
		fmt.Printf("  mentions: %v\n", content.Mentions)

		suggestions, err := engine.Generate(context.Background(), content, st)
		if err != nil {
			fmt.Printf("  (not decoratable: %v)\n\n", err)
			continue
		}
		for j, s := range suggestions {
			fmt.Printf("  %d. %s\n", j+1, s)
		}
		fmt.Println()
	}
}
