// Command ledger_audit checks that the service layer never writes ledger
// tables directly. Customer balances, ledger rows, QR usage, A/B assignments
// and outbox events are owned by the aggregates in internal/data/aggregates;
// a service method calling a write method on one of those repos is a finding.
//
//	go run ./scripts/ledger_audit [-strict] [root]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type repoField struct {
	Field    string `json:"field"`
	RepoType string `json:"repo_type"`
	Owner    string `json:"owner"`
}

type finding struct {
	Service string   `json:"service"`
	Method  string   `json:"method"`
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Calls   []string `json:"calls"`
}

type report struct {
	LedgerRepoFields   []repoField `json:"ledger_repo_fields"`
	AggregateCallsites int         `json:"aggregate_callsites"`
	AggregateMethods   []string    `json:"aggregate_methods"`
	Findings           []finding   `json:"findings"`
}

type serviceFields struct {
	repos      map[string]repoField
	aggregates map[string]string
}

// Repos whose rows only aggregates may write, keyed by interface name.
var ledgerOwners = map[string]string{
	"CustomerLoyaltyRepo":    "LoyaltyAccount",
	"LoyaltyTransactionRepo": "LoyaltyAccount",
	"QRCampaignUsageRepo":    "QRClaim",
	"QRCampaignRepo":         "QRClaim",
	"ABAssignmentRepo":       "Experiment",
	"OutboxRepo":             "Outbox",
}

var repoWriteMethods = map[string]bool{
	"Create":               true,
	"InsertIfAbsent":       true,
	"LockByID":             true,
	"LockByProgramAndHash": true,
	"Enqueue":              true,
	"MarkSucceeded":        true,
	"MarkFailed":           true,
	"ApplyDelta":           true,
}

func main() {
	strict := flag.Bool("strict", false, "exit non-zero when findings exist")
	flag.Parse()
	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	rep, err := audit(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger_audit: %v\n", err)
		os.Exit(1)
	}
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger_audit: marshal report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if *strict && len(rep.Findings) > 0 {
		os.Exit(2)
	}
}

func audit(root string) (report, error) {
	dir := filepath.Join(root, "internal", "services")
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, func(fi os.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, 0)
	if err != nil {
		return report{}, fmt.Errorf("parse %s: %w", dir, err)
	}
	pkg, ok := pkgs["services"]
	if !ok {
		return report{}, fmt.Errorf("services package not found in %s", dir)
	}

	fields := map[string]serviceFields{}
	for _, f := range pkg.Files {
		collectFields(f, fields)
	}

	var rep report
	aggMethods := map[string]bool{}
	for path, f := range pkg.Files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		for _, fd := range methodsOf(f) {
			recv, typ := receiver(fd)
			sf, ok := fields[typ]
			if !ok {
				continue
			}
			var calls []string
			ast.Inspect(fd.Body, func(n ast.Node) bool {
				field, method, ok := fieldCall(n, recv)
				if !ok {
					return true
				}
				if rf, ok := sf.repos[field]; ok && repoWriteMethods[method] {
					calls = append(calls, rf.Field+"."+method)
				}
				if _, ok := sf.aggregates[field]; ok {
					rep.AggregateCallsites++
					aggMethods[method] = true
				}
				return true
			})
			if len(calls) > 0 {
				sort.Strings(calls)
				rep.Findings = append(rep.Findings, finding{
					Service: typ,
					Method:  fd.Name.Name,
					File:    filepath.ToSlash(rel),
					Line:    fset.Position(fd.Pos()).Line,
					Calls:   calls,
				})
			}
		}
	}

	for typ, sf := range fields {
		for _, rf := range sf.repos {
			rf.Field = typ + "." + rf.Field
			rep.LedgerRepoFields = append(rep.LedgerRepoFields, rf)
		}
	}
	sort.Slice(rep.LedgerRepoFields, func(i, j int) bool { return rep.LedgerRepoFields[i].Field < rep.LedgerRepoFields[j].Field })
	sort.Slice(rep.Findings, func(i, j int) bool {
		if rep.Findings[i].File == rep.Findings[j].File {
			return rep.Findings[i].Line < rep.Findings[j].Line
		}
		return rep.Findings[i].File < rep.Findings[j].File
	})
	for m := range aggMethods {
		rep.AggregateMethods = append(rep.AggregateMethods, m)
	}
	sort.Strings(rep.AggregateMethods)
	return rep, nil
}

func collectFields(file *ast.File, out map[string]serviceFields) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			sf := serviceFields{repos: map[string]repoField{}, aggregates: map[string]string{}}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok || len(field.Names) == 0 {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok {
					continue
				}
				name := field.Names[0].Name
				switch pkgIdent.Name {
				case "repos":
					if owner, ok := ledgerOwners[sel.Sel.Name]; ok {
						sf.repos[name] = repoField{Field: name, RepoType: sel.Sel.Name, Owner: owner}
					}
				case "domainagg":
					if strings.HasSuffix(sel.Sel.Name, "Aggregate") {
						sf.aggregates[name] = sel.Sel.Name
					}
				}
			}
			if len(sf.repos) > 0 || len(sf.aggregates) > 0 {
				out[ts.Name.Name] = sf
			}
		}
	}
}

func methodsOf(file *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Recv != nil && fd.Body != nil && len(fd.Recv.List) > 0 {
			out = append(out, fd)
		}
	}
	return out
}

func receiver(fd *ast.FuncDecl) (string, string) {
	field := fd.Recv.List[0]
	if len(field.Names) == 0 {
		return "", ""
	}
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return field.Names[0].Name, id.Name
		}
	case *ast.Ident:
		return field.Names[0].Name, t.Name
	}
	return "", ""
}

// fieldCall matches recv.field.method(...).
func fieldCall(n ast.Node, recv string) (string, string, bool) {
	call, ok := n.(*ast.CallExpr)
	if !ok {
		return "", "", false
	}
	fn, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}
	inner, ok := fn.X.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}
	base, ok := inner.X.(*ast.Ident)
	if !ok || base.Name != recv {
		return "", "", false
	}
	return inner.Sel.Name, fn.Sel.Name, true
}
