package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/callstack/lang/callstackerr"
	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/graph"
	"github.com/mna/callstack/lang/ir"
	"github.com/mna/callstack/lang/present"
	"github.com/mna/callstack/lang/stackusage"
	"github.com/mna/callstack/lang/symbols"
	"github.com/mna/callstack/lang/target"
	"github.com/mna/mainer"
	"github.com/sirupsen/logrus"
)

// markerSymbolNames are the compiler-generated mapping symbols ("$t", "$d",
// "$a", ...) ARM toolchains emit to mark code/data boundaries -- never a
// good choice of canonical name for a real function, per spec.md §3.
var markerSymbolNames = map[string]bool{"$t": true, "$d": true, "$a": true}

func parseTargetFlag(s string) (target.Target, bool) {
	if s == "" {
		return target.Other, true
	}
	return target.Parse(s)
}

// Analyze implements the "analyze" command: spec.md §6's whole pipeline,
// ingest through present, run in strict sequential order.
func (c *Cmd) Analyze(ctx context.Context, stdio mainer.Stdio, args []string) error {
	tgt, _ := parseTargetFlag(c.Target)

	programIRPath := args[0]
	executablePath := args[len(args)-1]
	objectPaths := args[1 : len(args)-1]

	log := logrus.New()
	log.Out = stdio.Stderr

	module, err := loadModule(programIRPath, c.BuiltinsIR)
	if err != nil {
		return printError(stdio, err)
	}

	stackTable := make(symbols.StackTable)
	ingester := &symbols.Ingester{Analyzer: symbols.ELFAnalyzer{}, Log: log}
	for _, p := range objectPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return printError(stdio, callstackerr.New(callstackerr.Ingest, "", fmt.Errorf("read %s: %w", p, err)))
		}
		if symbols.IsArchive(data) {
			members, err := symbols.ReadArchive(data)
			if err != nil {
				return printError(stdio, callstackerr.New(callstackerr.Parse, "", fmt.Errorf("%s: %w", p, err)))
			}
			ingester.IngestArchive(members, false, "", stackTable)
		} else {
			ingester.IngestObject(p, data, stackTable)
		}
	}

	exeBytes, err := os.ReadFile(executablePath)
	if err != nil {
		return printError(stdio, callstackerr.New(callstackerr.Ingest, "", fmt.Errorf("read %s: %w", executablePath, err)))
	}

	analyzer := symbols.ELFAnalyzer{}
	exe, err := symbols.IngestExecutable(analyzer, exeBytes, tgt.IsThumb())
	if err != nil {
		return printError(stdio, callstackerr.New(callstackerr.Parse, "", err))
	}

	aliases := symbols.Canonicalize(exe, stackTable, markerSymbolNames)

	var tags []symbols.AddrTag
	var text []graph.TextSection
	if tgt.IsThumb() {
		tags, err = analyzer.AddrTags(exeBytes)
		if err != nil {
			return printError(stdio, callstackerr.New(callstackerr.Parse, "", err))
		}
		sections, err := analyzer.ExtractCodeSections(exeBytes)
		if err != nil {
			return printError(stdio, callstackerr.New(callstackerr.Parse, "", err))
		}
		for _, s := range sections {
			text = append(text, graph.TextSection{Addr: s.Addr, Data: s.Data})
		}
	}

	dem := demangle.Filter{}
	g, err := graph.Build(graph.Config{
		Module:     module,
		Executable: exe,
		Stack:      stackTable,
		Aliases:    aliases,
		Tags:       tags,
		Text:       text,
		Target:     tgt,
		Demangler:  dem,
		Logger:     log,
	})
	if err != nil {
		return printError(stdio, err)
	}

	stackusage.Solve(g)
	g = present.Filter(g, c.Start, dem, log)

	if c.List {
		tbl := &present.Table{Output: stdio.Stdout, Demangler: dem}
		if err := tbl.WriteTo(g); err != nil {
			return printError(stdio, err)
		}
		return nil
	}

	dot := &present.Dot{Output: stdio.Stdout, Demangler: dem}
	if err := dot.WriteTo(g); err != nil {
		return printError(stdio, err)
	}
	return nil
}

func loadModule(programIRPath, builtinsIRPath string) (*ir.Module, error) {
	programText, err := os.ReadFile(programIRPath)
	if err != nil {
		return nil, callstackerr.New(callstackerr.Ingest, "", fmt.Errorf("read %s: %w", programIRPath, err))
	}
	programItems, err := ParseIR(string(programText))
	if err != nil {
		return nil, err
	}

	var builtinsItems []ir.Item
	if builtinsIRPath != "" {
		builtinsText, err := os.ReadFile(builtinsIRPath)
		if err != nil {
			return nil, callstackerr.New(callstackerr.Ingest, "", fmt.Errorf("read %s: %w", builtinsIRPath, err))
		}
		builtinsItems, err = ParseIR(string(builtinsText))
		if err != nil {
			return nil, err
		}
	}

	return ir.Merge(programItems, builtinsItems), nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}
