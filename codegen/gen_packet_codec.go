//go:build ignore

// gen_packet_codec writes zz_generated_codec.go for a package of packet
// declarations. A type is picked up when its doc comment carries a marker
// such as
//
//	// @gen:r,w,regserver
//
// where r and w request UnmarshalWire and MarshalWire, and regserver and
// regclient add the type to the file's serverbound or clientbound registry
// under the id its ID method returns. Fields are taken from `field` tags in
// declaration order.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"text/template"
)

// wireKinds are the `field` tag values with a matching Encoder/Decoder
// method pair. Record delegates to MarshalTo/UnmarshalFrom.
var wireKinds = map[string]bool{
	"Bool": true, "Uint8": true, "Uint16": true, "Uint32": true, "Uint64": true,
	"Int8": true, "Int16": true, "Int32": true, "Int64": true,
	"VarInt": true, "VarLong": true, "String": true, "UUID": true, "Record": true,
}

type wireField struct {
	Name string
	Kind string
}

type packetDecl struct {
	Name   string
	Fields []wireField
	ID     string

	Read, Write              bool
	Serverbound, Clientbound bool
}

type sourceFile struct {
	Name string
	// Registry variable prefix, from the file name: status.go -> Status.
	Prefix  string
	Packets []packetDecl
}

func (f sourceFile) Serverbound() bool {
	for _, p := range f.Packets {
		if p.Serverbound {
			return true
		}
	}
	return false
}

func (f sourceFile) Clientbound() bool {
	for _, p := range f.Packets {
		if p.Clientbound {
			return true
		}
	}
	return false
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gen_packet_codec: ")

	out := flag.String("out", "zz_generated_codec.go", "output file name, relative to the package directory")
	flag.Parse()

	dir := "."
	if flag.NArg() > 0 {
		dir = flag.Arg(flag.NArg() - 1)
	}

	pkg, files, err := parseDir(dir)
	if err != nil {
		log.Fatal(err)
	}

	src, err := render(pkg, files)
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(dir, *out)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d files with packets)\n", path, len(files))
}

func parseDir(dir string) (string, []sourceFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return "", nil, err
	}

	fset := token.NewFileSet()
	var pkg string
	var files []sourceFile
	for _, path := range paths {
		base := filepath.Base(path)
		if strings.HasPrefix(base, "zz_generated") || strings.HasSuffix(base, "_test.go") {
			continue
		}

		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return "", nil, err
		}
		if pkg == "" {
			pkg = node.Name.Name
		}

		packets, err := packetDecls(node, packetIDs(node))
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", base, err)
		}
		if len(packets) == 0 {
			continue
		}

		stem := strings.TrimSuffix(base, filepath.Ext(base))
		files = append(files, sourceFile{
			Name:    base,
			Prefix:  strings.ToUpper(stem[:1]) + stem[1:],
			Packets: packets,
		})
	}
	return pkg, files, nil
}

// packetIDs maps type names to the literal returned by their ID method.
func packetIDs(node *ast.File) map[string]string {
	ids := make(map[string]string)
	for _, decl := range node.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "ID" || fn.Recv == nil || fn.Body == nil || len(fn.Recv.List) == 0 {
			continue
		}

		recv := fn.Recv.List[0].Type
		if star, ok := recv.(*ast.StarExpr); ok {
			recv = star.X
		}
		ident, ok := recv.(*ast.Ident)
		if !ok {
			continue
		}

		for _, stmt := range fn.Body.List {
			ret, ok := stmt.(*ast.ReturnStmt)
			if !ok || len(ret.Results) == 0 {
				continue
			}
			if lit, ok := ret.Results[0].(*ast.BasicLit); ok {
				ids[ident.Name] = lit.Value
			}
		}
	}
	return ids
}

func packetDecls(node *ast.File, ids map[string]string) ([]packetDecl, error) {
	var packets []packetDecl
	for _, decl := range node.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE || gen.Doc == nil {
			continue
		}
		opts, ok := genOptions(gen.Doc)
		if !ok {
			continue
		}

		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}

			fields, err := wireFields(ts.Name.Name, st)
			if err != nil {
				return nil, err
			}
			packets = append(packets, packetDecl{
				Name:        ts.Name.Name,
				Fields:      fields,
				ID:          ids[ts.Name.Name],
				Read:        opts["r"],
				Write:       opts["w"],
				Serverbound: opts["regserver"],
				Clientbound: opts["regclient"],
			})
		}
	}
	return packets, nil
}

// genOptions reports the comma separated options of the @gen: marker in doc.
func genOptions(doc *ast.CommentGroup) (map[string]bool, bool) {
	for _, c := range doc.List {
		_, rest, found := strings.Cut(c.Text, "@gen:")
		if !found {
			continue
		}
		opts := make(map[string]bool)
		for _, opt := range strings.Split(rest, ",") {
			opts[strings.TrimSpace(opt)] = true
		}
		return opts, true
	}
	return nil, false
}

func wireFields(typeName string, st *ast.StructType) ([]wireField, error) {
	var fields []wireField
	for _, f := range st.Fields.List {
		if f.Tag == nil {
			continue
		}
		raw, err := strconv.Unquote(f.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: bad struct tag %s", typeName, f.Tag.Value)
		}
		kind := reflect.StructTag(raw).Get("field")
		if kind == "" || kind == "-" {
			continue
		}

		for _, name := range f.Names {
			if !wireKinds[kind] {
				return nil, fmt.Errorf("%s.%s: field kind %q has no generated form", typeName, name.Name, kind)
			}
			fields = append(fields, wireField{Name: name.Name, Kind: kind})
		}
	}
	return fields, nil
}

var codecTemplate = template.Must(template.New("codec").Parse(`// Code generated by gen_packet_codec.go; DO NOT EDIT.

package {{.Package}}
{{range .Files}}
// Source: {{.Name}}
{{- if .Serverbound}}

var {{.Prefix}}ServerboundRegistry = map[int32]func() Packet{
{{- range .Packets}}
	{{- if .Serverbound}}
	{{.ID}}: func() Packet { return &{{.Name}}{} },
	{{- end}}
{{- end}}
}
{{- end}}
{{- if .Clientbound}}

var {{.Prefix}}ClientboundRegistry = map[int32]func() Packet{
{{- range .Packets}}
	{{- if .Clientbound}}
	{{.ID}}: func() Packet { return &{{.Name}}{} },
	{{- end}}
{{- end}}
}
{{- end}}
{{range .Packets}}
{{- if .Write}}
func (p {{.Name}}) MarshalWire(e Encoder) (err error) {
	if err = e.BeginRecord("{{.Name}}"); err != nil {
		return
	}
{{- range .Fields}}
	{{- if eq .Kind "Record"}}
	if err = MarshalTo(e, p.{{.Name}}); err != nil {
		return
	}
	{{- else}}
	if err = e.Write{{.Kind}}(p.{{.Name}}); err != nil {
		return
	}
	{{- end}}
{{- end}}
	return e.EndRecord()
}
{{- end}}
{{if .Read}}
func (p *{{.Name}}) UnmarshalWire(d Decoder) (err error) {
	if err = d.BeginRecord("{{.Name}}"); err != nil {
		return
	}
{{- range .Fields}}
	{{- if eq .Kind "Record"}}
	if err = UnmarshalFrom(d, &p.{{.Name}}); err != nil {
		return
	}
	{{- else}}
	if p.{{.Name}}, err = d.Read{{.Kind}}(); err != nil {
		return
	}
	{{- end}}
{{- end}}
	return d.EndRecord()
}
{{- end}}
{{end}}
{{- end}}
`))

func render(pkg string, files []sourceFile) ([]byte, error) {
	var buf bytes.Buffer
	err := codecTemplate.Execute(&buf, struct {
		Package string
		Files   []sourceFile
	}{pkg, files})
	if err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}
