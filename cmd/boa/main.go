// Command boa is a minimal embedder over pkg/engine: evaluate one or more
// script files (each in its own isolated context, concurrently -- contexts
// share nothing, spec.md §5) or a -e one-liner, drain microtasks, and print
// the completion value.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/BasixKOR/boa/internal/helpers"
	"github.com/BasixKOR/boa/pkg/engine"
)

func main() {
	expr := flag.String("e", "", "evaluate the given source text instead of files")
	configPath := flag.String("config", "", "optional TOML realm configuration")
	budget := flag.Uint64("budget", 0, "opcode budget per evaluation (0 = unbounded)")
	timing := flag.Bool("timing", false, "log per-phase timing")
	flag.Parse()

	if *expr != "" {
		os.Exit(runOne("<eval>", *expr, *configPath, *budget, *timing))
	}
	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: boa [-e source] [-config file.toml] [-budget n] file.js ...")
		os.Exit(2)
	}

	// One context per file, run concurrently: contexts are fully isolated,
	// so the only shared state is the exit code.
	wg := helpers.MakeThreadSafeWaitGroup()
	var mu sync.Mutex
	exit := 0
	for _, file := range files {
		file := file
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := os.ReadFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "boa: %v\n", err)
				mu.Lock()
				exit = 1
				mu.Unlock()
				return
			}
			if code := runOne(file, string(src), *configPath, *budget, *timing); code != 0 {
				mu.Lock()
				exit = code
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	os.Exit(exit)
}

func runOne(name, source, configPath string, budget uint64, timing bool) int {
	ctx, err := engine.NewContext(engine.Options{
		ConfigPath:   configPath,
		OpcodeBudget: budget,
		Timing:       timing,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "boa: %v\n", err)
		return 1
	}
	v, err := ctx.Eval(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}
	ctx.RunJobs()
	if !v.IsUndefined() {
		fmt.Println(ctx.ToGoString(v))
	}
	return 0
}
