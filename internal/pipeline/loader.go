package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/source"
)

// LoadResult holds the output of a batch terms import.
type LoadResult struct {
	Terms      []source.Terms
	Failures   []source.ParseResult
	TotalFiles int
	Parsed     int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// LoadDir discovers every terms file under dir and parses them with LoadFiles.
func LoadDir(dir string, cat model.Catalog, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return LoadFiles(files, cat, progressFn), nil
}

// LoadFiles parses terms files with a bounded worker pool. Results keep the
// order of files; a file that fails validation is reported in Failures and
// does not stop the batch.
func LoadFiles(files []source.DiscoveredFile, cat model.Catalog, progressFn ProgressFunc) *LoadResult {
	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx], cat)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	for _, pr := range results {
		if pr.Err != nil {
			result.Failures = append(result.Failures, pr)
			continue
		}
		result.Parsed++
		result.Terms = append(result.Terms, pr.Terms)
	}
	return result
}
