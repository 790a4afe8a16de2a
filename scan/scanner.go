package scan

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/teamchong/codesift/engine"
	"github.com/teamchong/codesift/rulevm"
)

// FileResult is one scanned file: its findings, or the error that stopped
// it.
type FileResult struct {
	File     string
	Source   []byte
	Findings []rulevm.Finding
	Err      error
}

// Scanner runs one compiled ruleset over many files. The core is
// single-threaded, so each worker instantiates its own engine and loads
// the bytecode into it.
type Scanner struct {
	bytecode []byte
	workers  int
}

// NewScanner wraps ruleset bytecode for scanning. workers <= 0 means one
// worker per CPU.
func NewScanner(bytecode []byte, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{bytecode: bytecode, workers: workers}
}

// Run scans every file and returns per-file results in path order. Files
// that fail to read or parse carry their error; the scan itself fails only
// when the ruleset cannot be loaded at all or the context is cancelled (the
// results gathered so far are returned with the context error).
func (s *Scanner) Run(ctx context.Context, files []File) ([]FileResult, error) {
	// Fail fast on unloadable bytecode before spinning up workers.
	if _, err := rulevm.Decode(s.bytecode); err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}

	jobs := make(chan File)
	results := make([]FileResult, 0, len(files))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	workers := s.workers
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng := engine.New()
			defer eng.Close()

			rsHandle := eng.LoadRuleset(s.bytecode)
			for file := range jobs {
				res := s.scanOne(eng, rsHandle, file)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Scanner) scanOne(eng *engine.Engine, rsHandle uint32, file File) FileResult {
	res := FileResult{File: file.Path}
	if rsHandle == 0 {
		res.Err = fmt.Errorf("ruleset not loaded")
		return res
	}

	source, err := os.ReadFile(file.Path)
	if err != nil {
		res.Err = fmt.Errorf("read: %w", err)
		return res
	}
	res.Source = source

	srcHandle := eng.CompileSource(source, file.Language)
	if srcHandle == 0 {
		res.Err = fmt.Errorf("parse failed")
		return res
	}
	defer eng.FreeSource(srcHandle)

	res.Findings = eng.Findings(rsHandle, srcHandle)
	return res
}
