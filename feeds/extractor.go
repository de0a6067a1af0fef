package feeds

import (
	"log"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"curator/types"
)

const (
	extractorWorkers = 5
	extractorTimeout = 30 * time.Second
	// Bodies shorter than this are considered feed-summary stubs
	// worth replacing with the extracted page text.
	minBodyLength = 400
)

// ExtractBodies fills in full text for candidates whose feed body is
// thin, using a worker pool. Extraction failures leave the original
// body in place; they are not per-item errors.
func ExtractBodies(candidates []types.Candidate) {
	var wg sync.WaitGroup
	work := make(chan int, len(candidates))

	for w := 0; w < extractorWorkers; w++ {
		go func() {
			for i := range work {
				extractBody(&candidates[i])
				wg.Done()
			}
		}()
	}

	for i := range candidates {
		if len(strings.TrimSpace(candidates[i].Body)) >= minBodyLength {
			continue
		}
		wg.Add(1)
		work <- i
	}

	wg.Wait()
	close(work)
}

func extractBody(c *types.Candidate) {
	article, err := readability.FromURL(c.Link, extractorTimeout)
	if err != nil {
		log.Printf("Warning: readability extraction failed for %s: %v", c.Link, err)
		return
	}

	if text := strings.TrimSpace(article.TextContent); text != "" {
		c.Body = text
	}
	if c.Author == "" {
		c.Author = article.Byline
	}
}
