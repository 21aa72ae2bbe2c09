// Showroom-modpack exports a site module into a portable bundle and imports
// bundles into a site checkout.
//
// Usage:
//
//	showroom-modpack export -root <site> -manifest <module.yaml> [-o bundle.json]
//	showroom-modpack plan -bundle <bundle.json> [-target <site>] [-data-dir <dir>]
//	showroom-modpack apply -bundle <bundle.json> [-target <site>] [-data-dir <dir>]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/maruel/showroom/internal/bundle"
	"github.com/maruel/showroom/internal/cli"
	"github.com/maruel/showroom/internal/jsonldb"
	"github.com/maruel/showroom/internal/modules/playground"
	"github.com/maruel/showroom/internal/modules/portfolio"
	"github.com/maruel/showroom/internal/modules/submissions"
	"github.com/maruel/showroom/internal/modules/testimonials"
	"github.com/maruel/showroom/internal/modules/themes"
)

// builtinModules are compiled into the server and always installed.
var builtinModules = []string{themes.Name, submissions.Name, portfolio.Name, testimonials.Name, playground.Name}

func main() {
	if err := mainImpl(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "showroom-modpack: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "usage: showroom-modpack <export|plan|apply|version> [flags]\n")
}

func mainImpl(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errors.New("missing command")
	}
	ll := cli.SetupLogging()
	switch cmd, rest := args[0], args[1:]; cmd {
	case "export":
		return cmdExport(rest, stdout)
	case "plan":
		return cmdPlan(rest, stdout, ll, false)
	case "apply":
		return cmdPlan(rest, stdout, ll, true)
	case "version", "-version", "--version":
		b := cli.ReadBuildInfo()
		b.Print(stdout, "showroom-modpack")
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdExport(args []string, stdout io.Writer) error {
	fl := flag.NewFlagSet("export", flag.ContinueOnError)
	root := fl.String("root", ".", "Site checkout the manifest paths are relative to")
	manifest := fl.String("manifest", "", "Module manifest (JSON or YAML, required)")
	out := fl.String("o", "", "Output bundle file; - writes to stdout (default: <name>-<version>.bundle.json)")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if fl.NArg() != 0 {
		return fmt.Errorf("unknown arguments: %v", fl.Args())
	}
	if *manifest == "" {
		return errors.New("-manifest is required")
	}
	m, err := bundle.LoadManifest(*manifest)
	if err != nil {
		return err
	}
	b, err := bundle.Export(m, os.DirFS(*root))
	if err != nil {
		return err
	}
	if *out == "-" {
		return b.Write(stdout)
	}
	if *out == "" {
		*out = fmt.Sprintf("%s-%s.bundle.json", m.Name, strings.TrimPrefix(m.Version, "v"))
	}
	f, err := os.Create(*out) //nolint:gosec // G304: output path from the command line
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Exported module", "name", m.Name, "version", m.Version, "files", len(b.Files), "out", *out)
	return nil
}

func cmdPlan(args []string, stdout io.Writer, ll *slog.LevelVar, apply bool) error {
	name := "plan"
	if apply {
		name = "apply"
	}
	fl := flag.NewFlagSet(name, flag.ContinueOnError)
	bundlePath := fl.String("bundle", "", "Bundle file (required)")
	target := fl.String("target", ".", "Site checkout to import into")
	dataDir := fl.String("data-dir", "", "Showroom data directory; enables table checks")
	moduleDir := fl.String("module-dir", "", "Directory owned by the module (default: src/modules/<name>)")
	installed := fl.String("installed", "", "Comma separated modules to consider installed, in addition to the detected ones")
	overwrite := fl.Bool("overwrite", false, "Overwrite conflicting files")
	prune := fl.Bool("prune", false, "Delete module files absent from the bundle")
	asJSON := fl.Bool("json", false, "Print the plan as JSON")
	verbose := fl.Bool("v", false, "Verbose logging")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if fl.NArg() != 0 {
		return fmt.Errorf("unknown arguments: %v", fl.Args())
	}
	if *verbose {
		ll.Set(slog.LevelDebug)
	}
	if *bundlePath == "" {
		return errors.New("-bundle is required")
	}
	b, err := readBundle(*bundlePath)
	if err != nil {
		return err
	}
	baseline := os.DirFS(*target)
	opts := bundle.Options{
		Overwrite: *overwrite,
		Prune:     *prune,
		ModuleDir: *moduleDir,
	}
	if opts.InstalledModules, err = installedModules(baseline, *installed); err != nil {
		return err
	}
	if *dataDir != "" {
		if opts.ExistingTables, err = existingTables(*dataDir); err != nil {
			return err
		}
	}
	slog.Debug("Planning import", "module", b.Manifest.Name, "installed", opts.InstalledModules, "tables", opts.ExistingTables)
	p, err := bundle.PlanImport(b, baseline, opts)
	if err != nil {
		return err
	}
	if *asJSON {
		e := json.NewEncoder(stdout)
		e.SetIndent("", "  ")
		if err := e.Encode(p); err != nil {
			return err
		}
	} else if err := printPlan(stdout, p); err != nil {
		return err
	}
	if !apply {
		return nil
	}
	if len(p.Tables) != 0 && *dataDir == "" {
		return errors.New("the module needs tables; pass -data-dir")
	}
	if err := bundle.Apply(p, b, *target); err != nil {
		return err
	}
	if err := createTables(*dataDir, p.Tables); err != nil {
		return err
	}
	slog.Info("Imported module", "name", p.Module, "version", p.Version, "install", p.Install)
	return nil
}

func readBundle(path string) (*bundle.Bundle, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path from the command line
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	b, err := bundle.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// installedModules returns the built-in modules, the modules with an
// installed manifest under src/modules and the extra ones, sorted.
func installedModules(baseline fs.FS, extra string) ([]string, error) {
	out := slices.Clone(builtinModules)
	matches, err := fs.Glob(baseline, "src/modules/*/"+bundle.ManifestFile)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		data, err := fs.ReadFile(baseline, m)
		if err != nil {
			return nil, err
		}
		man, err := bundle.ParseManifest(data)
		if err != nil {
			slog.Warn("Ignoring invalid installed manifest", "path", m, "err", err)
			continue
		}
		out = append(out, man.Name)
	}
	for name := range strings.SplitSeq(extra, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// existingTables lists the JSONL tables of the data directory.
func existingTables(dataDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "db", "*.jsonl"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".jsonl"))
	}
	return out, nil
}

func createTables(dataDir string, tables []bundle.TableOp) error {
	for _, op := range tables {
		cols := make([]jsonldb.Column, len(op.Table.Columns))
		for i, c := range op.Table.Columns {
			cols[i] = jsonldb.Column{Name: c.Name, Type: c.Type, Required: c.Required}
		}
		p := filepath.Join(dataDir, "db", op.Table.Name+".jsonl")
		if err := jsonldb.CreateEmpty(p, cols); err != nil {
			return fmt.Errorf("failed to create table %s: %w", op.Table.Name, err)
		}
		slog.Info("Created table", "name", op.Table.Name)
	}
	return nil
}

func printPlan(w io.Writer, p *bundle.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Module:\t%s %s (%s", p.Module, p.Version, p.Install)
	if p.PreviousVersion != "" {
		fmt.Fprintf(tw, " from %s", p.PreviousVersion)
	}
	fmt.Fprintf(tw, ")\nDirectory:\t%s\n\n", p.ModuleDir)
	for _, op := range p.Files {
		fmt.Fprintf(tw, "%s\t%s\n", op.Action, op.Path)
	}
	for _, op := range p.Tables {
		fmt.Fprintf(tw, "%s\t%s (%d columns)\n", op.Action, op.Table.Name, len(op.Table.Columns))
	}
	for _, d := range p.Dependencies {
		if d.Installed != "" {
			fmt.Fprintf(tw, "dependency %s\t%s %s (installed %s)\n", d.Action, d.Name, d.Version, d.Installed)
		} else {
			fmt.Fprintf(tw, "dependency %s\t%s %s\n", d.Action, d.Name, d.Version)
		}
	}
	for _, warn := range p.Warnings {
		fmt.Fprintf(tw, "warning:\t%s\n", warn)
	}
	if c := p.Conflicts(); len(c) != 0 {
		fmt.Fprintf(tw, "\n%d conflict(s); rerun with -overwrite to replace them.\n", len(c))
	}
	return tw.Flush()
}
