// Command 0install-run is the minimal CLI front-end over the execution
// core (§1 "GUI/CLI front-ends" are out of scope beyond this entry
// point): it reads a selections document and launches the program it
// names, following the teacher's flag-based command style rather than
// pulling in a CLI framework.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/executor"
	"github.com/zeroinst/zerocore/internal/selections"
)

func main() {
	log.SetFlags(0)
	prefix := "0install-run: "
	if isatty.IsTerminal(os.Stderr.Fd()) {
		prefix = "\x1b[31m0install-run:\x1b[0m "
	}
	log.SetPrefix(prefix)

	var (
		wrapper        = flag.String("wrapper", "", "command line to run the program under, e.g. a debugger")
		main_          = flag.String("main", "", "override the command name recorded in the selections document")
		selectionsPath = flag.String("selections", "", "path to a selections XML document (required)")
	)
	flag.Parse()

	if *selectionsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: 0install-run -selections <file> [-wrapper CMD] [-main NAME] [-- args...]")
		os.Exit(2)
	}

	if err := run(*selectionsPath, *wrapper, *main_, flag.Args()); err != nil {
		code := exitCodeFor(err)
		log.Println(err)
		os.Exit(code)
	}
}

func run(selectionsPath, wrapper, overrideMain string, args []string) error {
	f, err := os.Open(selectionsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sels, err := selections.Read(f)
	if err != nil {
		return err
	}

	ctx, cancel := zerocore.RunContext()
	defer cancel()

	ex := executor.New()
	b, err := ex.Inject(ctx, sels, overrideMain)
	if err != nil {
		return err
	}
	if wrapper != "" {
		if err := b.AddWrapper(wrapper); err != nil {
			return err
		}
	}
	b.AddArguments(args)
	return b.Start(ctx)
}

// exitCodeFor maps the execution core's error taxonomy onto the exit
// codes §6 assigns to the surrounding host CLI.
func exitCodeFor(err error) int {
	switch {
	case zerocore.Is(err, zerocore.KindInvalid):
		return 25
	case zerocore.Is(err, zerocore.KindNotFound):
		return 11
	case zerocore.Is(err, zerocore.KindArchiveInvalid):
		return 25
	case zerocore.Is(err, zerocore.KindDigestMismatch):
		return 26
	case zerocore.Is(err, zerocore.KindIO):
		return 12
	case zerocore.Is(err, zerocore.KindNetwork):
		return 10
	case zerocore.Is(err, zerocore.KindCanceled):
		return 100
	case zerocore.Is(err, zerocore.KindPlatformUnsupported):
		return 50
	default:
		return 1
	}
}
