// cmd/tracegen/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// This binary is a code-generation tool.
//
// It reads a YAML specification naming concrete types of one package, parses
// the package's Go sources and generates, per type:
// - <Type>TraceDescriptor: the class descriptor (exported methods + parameter names)
// - <Type>TraceClass: a tracer.Class for a tracer.MapRegistry
// - <Proxy>: a method-table proxy exposing the same exported methods
//
// Key behaviors:
// - Methods declared with receiver T or *T are collected in source order (files sorted by name)
// - Unnamed or blank parameters are described as argN
// - A method whose only result is *tracer.Future is asynchronous
// - Imports are taken from the file declaring each method, only those the signatures use
// - Output is gofmt'ed and written atomically (temp file + rename)

const defaultTracerImport = "github.com/sghaida/oditrace/tracer"

// TypeSpec names one type to generate tracing support for.
type TypeSpec struct {
	// Name is the concrete type name.
	Name string `yaml:"name"`

	// Proxy is the generated proxy type name. Defaults to <Name>Proxy.
	Proxy string `yaml:"proxy"`
}

// Spec is the full input schema consumed by the generator.
type Spec struct {
	Package string `yaml:"package"`

	// TracerImport overrides the import path of the tracer package.
	TracerImport string `yaml:"tracerImport"`

	Types []TypeSpec `yaml:"types"`
}

// ImportSpec models one Go import: optional alias and full import path.
type ImportSpec struct {
	Alias string
	Path  string
}

// param is one method parameter as it appears in source.
type param struct {
	Name     string
	Type     string
	Variadic bool
}

// method is one exported method of a traced type.
type method struct {
	Name    string
	Params  []param
	Results []string
	Async   bool
}

// typeInfo is everything collected about one traced type.
type typeInfo struct {
	Name           string
	Proxy          string
	ValueReceivers bool
	Methods        []method
}

// templateData is the input passed to the Go template.
type templateData struct {
	Package string
	Imports []ImportSpec
	Types   []typeInfo
}

// reservedMethods clash with methods every generated proxy declares.
var reservedMethods = map[string]struct{}{
	"MethodTable": {},
	"ClassName":   {},
	"Unwrap":      {},
}

// run executes the generator logic and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("tracegen", flag.ContinueOnError)
	flags.SetOutput(stderr)

	specPath := flags.String("spec", "", "path to trace.yaml")
	outPath := flags.String("out", "", "output .gen.go file path")
	srcDir := flags.String("dir", "", "package source directory (default: directory of -out)")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*specPath) == "" || strings.TrimSpace(*outPath) == "" {
		_, _ = fmt.Fprintln(stderr, "usage: tracegen -spec <trace.yaml> -out <file.gen.go> [-dir <pkgdir>]")
		return 2
	}

	specBytes, err := os.ReadFile(*specPath)
	must(err)

	spec := decodeSpec(specBytes)
	validateSpec(&spec)

	generatedFilePath := filepath.Clean(*outPath)
	packageDir := *srcDir
	if strings.TrimSpace(packageDir) == "" {
		packageDir = filepath.Dir(generatedFilePath)
	}

	src, err := generate(&spec, packageDir, generatedFilePath)
	must(err)

	must(writeFileAtomic(generatedFilePath, src, 0o644))
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// decodeSpec parses the YAML spec, rejecting unknown fields.
func decodeSpec(data []byte) Spec {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		panic(fmt.Errorf("invalid spec: %w", err))
	}
	return spec
}

// validateSpec validates semantic correctness of the input specification and
// fills defaults.
func validateSpec(spec *Spec) {
	var missingFields []string

	if strings.TrimSpace(spec.Package) == "" {
		missingFields = append(missingFields, "package")
	}
	if len(spec.Types) == 0 {
		missingFields = append(missingFields, "types (must have at least 1)")
	}
	if len(missingFields) > 0 {
		panic(fmt.Errorf("spec missing required fields: %v", missingFields))
	}

	if strings.TrimSpace(spec.TracerImport) == "" {
		spec.TracerImport = defaultTracerImport
	}

	seenNames := make(map[string]struct{}, len(spec.Types))
	seenProxies := make(map[string]struct{}, len(spec.Types))

	for i := range spec.Types {
		ts := &spec.Types[i]
		if !token.IsIdentifier(ts.Name) {
			panic(fmt.Errorf("invalid type name: %q", ts.Name))
		}
		if ts.Proxy == "" {
			ts.Proxy = ts.Name + "Proxy"
		}
		if !token.IsIdentifier(ts.Proxy) {
			panic(fmt.Errorf("invalid proxy name: %q", ts.Proxy))
		}
		if _, ok := seenNames[ts.Name]; ok {
			panic(fmt.Errorf("duplicate type: %s", ts.Name))
		}
		if _, ok := seenProxies[ts.Proxy]; ok {
			panic(fmt.Errorf("duplicate proxy: %s", ts.Proxy))
		}
		seenNames[ts.Name] = struct{}{}
		seenProxies[ts.Proxy] = struct{}{}
	}
}

// sourceFile is one parsed file of the package.
type sourceFile struct {
	ast     *ast.File
	imports []ImportSpec
}

// parsePackage parses every non-test, non-generated Go file of the package in
// dir, skipping the output file itself.
func parsePackage(dir, pkgName, skipPath string) ([]sourceFile, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fileSet := token.NewFileSet()
	var files []sourceFile

	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()
		if !strings.HasSuffix(fileName, ".go") ||
			strings.HasSuffix(fileName, "_test.go") ||
			strings.HasSuffix(fileName, ".gen.go") {
			continue
		}

		filePath := filepath.Join(dir, fileName)
		if filepath.Clean(filePath) == filepath.Clean(skipPath) {
			continue
		}

		parsedFile, err := parser.ParseFile(fileSet, filePath, nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		if parsedFile.Name.Name != pkgName {
			continue
		}

		files = append(files, sourceFile{ast: parsedFile, imports: fileImports(parsedFile)})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files for package %s in %s", pkgName, dir)
	}
	return files, nil
}

// fileImports lists the imports of a parsed file.
func fileImports(f *ast.File) []ImportSpec {
	var imports []ImportSpec
	for _, importDecl := range f.Imports {
		importPath, _ := strconv.Unquote(importDecl.Path.Value)
		importAlias := ""
		if importDecl.Name != nil {
			importAlias = importDecl.Name.Name
		}
		imports = append(imports, ImportSpec{Alias: importAlias, Path: importPath})
	}
	return imports
}

var versionSuffix = regexp.MustCompile(`^v[0-9]+$`)

// importDefaultIdent guesses the package name of an import path: its last
// element, skipping a /vN major version element and dropping a .vN suffix.
func importDefaultIdent(importPath string) string {
	// Import paths always use forward slashes, even on Windows.
	importPath = strings.TrimSpace(importPath)
	base := path.Base(importPath)
	if versionSuffix.MatchString(base) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 && versionSuffix.MatchString(base[i+1:]) {
		base = base[:i]
	}
	return strings.ReplaceAll(base, "-", "_")
}

// importFor finds the import in imports that declares package identifier ident.
func importFor(imports []ImportSpec, ident string) (ImportSpec, bool) {
	for _, imp := range imports {
		if imp.Alias == ident {
			return imp, true
		}
	}
	for _, imp := range imports {
		if imp.Alias == "" && importDefaultIdent(imp.Path) == ident {
			return imp, true
		}
	}
	return ImportSpec{}, false
}

func ensureImport(imports *[]ImportSpec, required ImportSpec) {
	for _, existing := range *imports {
		if existing.Path == required.Path && existing.Alias == required.Alias {
			return
		}
	}
	*imports = append(*imports, required)
}

// usedPackages returns the package identifiers referenced by a type expression.
func usedPackages(expr ast.Expr) []string {
	var idents []string
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if x, ok := sel.X.(*ast.Ident); ok {
			idents = append(idents, x.Name)
		}
		return false
	})
	return idents
}

// receiverType returns the receiver's base type name and whether the
// receiver is a pointer. Generic receivers report ok=false.
func receiverType(recv *ast.FieldList) (name string, pointer bool, ok bool) {
	if recv == nil || len(recv.List) != 1 {
		return "", false, false
	}
	expr := recv.List[0].Type
	if star, isStar := expr.(*ast.StarExpr); isStar {
		pointer = true
		expr = star.X
	}
	ident, isIdent := expr.(*ast.Ident)
	if !isIdent {
		return "", false, false
	}
	return ident.Name, pointer, true
}

// isFutureResult reports whether results is exactly one *tracer.Future.
func isFutureResult(results *ast.FieldList, imports []ImportSpec, tracerImport string) bool {
	if results == nil || len(results.List) != 1 || len(results.List[0].Names) > 1 {
		return false
	}
	star, ok := results.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Future" {
		return false
	}
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	imp, ok := importFor(imports, x.Name)
	return ok && imp.Path == tracerImport
}

// collectMethod converts a method declaration; imports used by its signature
// are added to used.
func collectMethod(fn *ast.FuncDecl, file sourceFile, tracerImport string, used *[]ImportSpec) (method, error) {
	m := method{
		Name:  fn.Name.Name,
		Async: isFutureResult(fn.Type.Results, file.imports, tracerImport),
	}

	addImports := func(expr ast.Expr) error {
		for _, ident := range usedPackages(expr) {
			imp, ok := importFor(file.imports, ident)
			if !ok {
				return fmt.Errorf("method %s: cannot resolve import for %q", fn.Name.Name, ident)
			}
			ensureImport(used, imp)
		}
		return nil
	}

	index := 0
	for _, field := range fn.Type.Params.List {
		typ := field.Type
		variadic := false
		if ell, ok := typ.(*ast.Ellipsis); ok {
			variadic = true
			typ = ell.Elt
		}
		if err := addImports(typ); err != nil {
			return method{}, err
		}

		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{nil}
		}
		for _, n := range names {
			name := "arg" + strconv.Itoa(index)
			if n != nil && n.Name != "_" {
				name = n.Name
			}
			m.Params = append(m.Params, param{Name: name, Type: types.ExprString(typ), Variadic: variadic})
			index++
		}
	}

	if fn.Type.Results != nil {
		for _, field := range fn.Type.Results.List {
			if err := addImports(field.Type); err != nil {
				return method{}, err
			}
			count := len(field.Names)
			if count == 0 {
				count = 1
			}
			for i := 0; i < count; i++ {
				m.Results = append(m.Results, types.ExprString(field.Type))
			}
		}
	}
	return m, nil
}

// collectTypes finds every spec type and its exported methods.
func collectTypes(spec *Spec, files []sourceFile, used *[]ImportSpec) ([]typeInfo, error) {
	declared := map[string]bool{}
	for _, f := range files {
		for _, decl := range f.ast.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, s := range gen.Specs {
				ts := s.(*ast.TypeSpec)
				declared[ts.Name.Name] = ts.TypeParams == nil
			}
		}
	}

	infos := make([]typeInfo, 0, len(spec.Types))
	for _, ts := range spec.Types {
		nonGeneric, ok := declared[ts.Name]
		if !ok {
			return nil, fmt.Errorf("type %s not found in package %s", ts.Name, spec.Package)
		}
		if !nonGeneric {
			return nil, fmt.Errorf("type %s is generic", ts.Name)
		}

		info := typeInfo{Name: ts.Name, Proxy: ts.Proxy, ValueReceivers: true}
		for _, f := range files {
			for _, decl := range f.ast.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || !fn.Name.IsExported() {
					continue
				}
				recvName, pointer, ok := receiverType(fn.Recv)
				if !ok || recvName != ts.Name {
					continue
				}
				if _, reserved := reservedMethods[fn.Name.Name]; reserved {
					continue
				}
				if pointer {
					info.ValueReceivers = false
				}
				m, err := collectMethod(fn, f, spec.TracerImport, used)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", ts.Name, err)
				}
				info.Methods = append(info.Methods, m)
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// generate produces the formatted source for spec.
func generate(spec *Spec, packageDir, outPath string) ([]byte, error) {
	files, err := parsePackage(packageDir, spec.Package, outPath)
	if err != nil {
		return nil, err
	}

	imports := []ImportSpec{{Path: spec.TracerImport}}
	infos, err := collectTypes(spec, files, &imports)
	if err != nil {
		return nil, err
	}
	// The generated code always refers to the tracer package as "tracer".
	if importDefaultIdent(spec.TracerImport) != "tracer" {
		imports[0].Alias = "tracer"
	}
	sort.SliceStable(imports[1:], func(i, j int) bool { return imports[1+i].Path < imports[1+j].Path })

	var out bytes.Buffer
	if err := genTemplate.Execute(&out, templateData{
		Package: spec.Package,
		Imports: imports,
		Types:   infos,
	}); err != nil {
		return nil, err
	}

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	return src, nil
}

//
// Template helpers. Generated proxy parameters are named a0..aN so they never
// collide with the receiver or locals; the descriptor keeps the source names.
//

// ParamNames renders the descriptor parameter list.
func (m method) ParamNames() string {
	quoted := make([]string, len(m.Params))
	for i, p := range m.Params {
		quoted[i] = strconv.Quote(p.Name)
	}
	return strings.Join(quoted, ", ")
}

// Signature renders the proxy method's parameters.
func (m method) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		typ := p.Type
		if p.Variadic {
			typ = "..." + typ
		}
		parts[i] = "a" + strconv.Itoa(i) + " " + typ
	}
	return strings.Join(parts, ", ")
}

// ResultList renders the proxy method's results.
func (m method) ResultList() string {
	switch len(m.Results) {
	case 0:
		return ""
	case 1:
		return " " + m.Results[0]
	default:
		return " (" + strings.Join(m.Results, ", ") + ")"
	}
}

// Call renders the forwarding call to the target inside the method table.
func (m method) Call() string {
	args := make([]string, len(m.Params))
	for i, p := range m.Params {
		if p.Variadic {
			args[i] = "tracer.Arg[[]" + p.Type + "](args, " + strconv.Itoa(i) + ")..."
			continue
		}
		args[i] = "tracer.Arg[" + p.Type + "](args, " + strconv.Itoa(i) + ")"
	}
	return "target." + m.Name + "(" + strings.Join(args, ", ") + ")"
}

// Body renders the method table entry body.
func (m method) Body() string {
	call := m.Call()
	switch {
	case m.Async:
		return "return tracer.Pending(" + call + ")"
	case len(m.Results) == 0:
		return call + "\nreturn tracer.Immediate()"
	default:
		outs := make([]string, len(m.Results))
		for i := range outs {
			outs[i] = "r" + strconv.Itoa(i)
		}
		list := strings.Join(outs, ", ")
		return list + " := " + call + "\nreturn tracer.Immediate(" + list + ")"
	}
}

// Forward renders the proxy method body.
func (m method) Forward() string {
	args := []string{strconv.Quote(m.Name)}
	for i := range m.Params {
		args = append(args, "a"+strconv.Itoa(i))
	}
	invoke := "p.table.Invoke(" + strings.Join(args, ", ") + ")"
	switch {
	case m.Async:
		return "return " + invoke + ".Future()"
	case len(m.Results) == 0:
		return invoke
	default:
		outs := make([]string, len(m.Results))
		for i, typ := range m.Results {
			outs[i] = "tracer.Out[" + typ + "](r, " + strconv.Itoa(i) + ")"
		}
		return "r := " + invoke + "\nreturn " + strings.Join(outs, ", ")
	}
}

// genTemplate is the Go source template used to generate the proxies.
var genTemplate = template.Must(
	template.New("tracegen").Parse(`// Code generated by tracegen; DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{range $t := .Types}}
// {{.Name}}TraceDescriptor lists the traceable methods of {{.Name}}.
var {{.Name}}TraceDescriptor = tracer.ClassDescriptor{
	Name: "{{.Name}}",
	Methods: []tracer.MethodDescriptor{
	{{- range .Methods}}
		{Name: "{{.Name}}", Params: []string{ {{- .ParamNames -}} }},
	{{- end}}
	},
}

// {{.Name}}TraceClass registers {{.Name}} with a tracer.MapRegistry.
var {{.Name}}TraceClass = tracer.Class{
	Descriptor: {{.Name}}TraceDescriptor,
	Proxy: func(instance any) (tracer.Instrumentable, bool) {
		switch v := instance.(type) {
		case *{{.Name}}:
			return New{{.Proxy}}(v), true
		{{- if .ValueReceivers}}
		case {{.Name}}:
			return New{{.Proxy}}(&v), true
		{{- end}}
		}
		return nil, false
	},
}

// {{.Proxy}} forwards every exported method of {{.Name}} through a method table.
type {{.Proxy}} struct {
	target *{{.Name}}
	table  *tracer.MethodTable
}

// New{{.Proxy}} wraps target.
func New{{.Proxy}}(target *{{.Name}}) *{{.Proxy}} {
	table := tracer.NewMethodTable({{.Name}}TraceDescriptor)
	{{- range .Methods}}
	table.Define("{{.Name}}", func(args ...any) tracer.Result {
		{{.Body}}
	})
	{{- end}}
	return &{{.Proxy}}{target: target, table: table}
}

func (p *{{.Proxy}}) MethodTable() *tracer.MethodTable { return p.table }

func (p *{{.Proxy}}) ClassName() string { return "{{.Name}}" }

func (p *{{.Proxy}}) Unwrap() *{{.Name}} { return p.target }
{{range .Methods}}
func (p *{{$t.Proxy}}) {{.Name}}({{.Signature}}){{.ResultList}} {
	{{.Forward}}
}
{{end}}
{{- end}}`),
)

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeFileAtomic writes a file atomically.
//
// It writes to a temporary file in the same directory and then renames it
// over the target path, ensuring readers never observe partial writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	targetDir := filepath.Dir(targetPath)

	tmpFile, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}

// must panics if err is non-nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
