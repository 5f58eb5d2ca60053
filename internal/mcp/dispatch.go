package mcp

import (
	"fmt"

	"mdkb/internal/logging"
	"mdkb/internal/store"
)

// Op identifies one of the fixed knowledge-base operations.
type Op int

const (
	OpCreateFile Op = iota
	OpReadFile
	OpUpdateFile
	OpDeleteFile
	OpListFiles
	OpSearchContent
)

// opOrder fixes the registration and listing order of the tools.
var opOrder = []Op{
	OpCreateFile,
	OpReadFile,
	OpUpdateFile,
	OpDeleteFile,
	OpListFiles,
	OpSearchContent,
}

func (op Op) String() string {
	return ops[op].name
}

type argType int

const (
	argString argType = iota
	argObject
)

// argDef declares one argument of an operation. The required/optional split
// is the durable contract of the operation surface.
type argDef struct {
	name     string
	desc     string
	typ      argType
	required bool
}

// opSpec is one entry of the closed dispatch table.
type opSpec struct {
	name        string
	description string
	args        []argDef
	readOnly    bool
	destructive bool
	idempotent  bool
	run         func(d *Dispatcher, a arguments) (string, error)
}

var ops = map[Op]opSpec{
	OpCreateFile: {
		name:        "create_file",
		description: "Create a new markdown file",
		args: []argDef{
			{name: "path", desc: "Relative path for the new file", typ: argString, required: true},
			{name: "content", desc: "File content", typ: argString, required: true},
			{name: "metadata", desc: "Optional frontmatter metadata", typ: argObject},
		},
		destructive: true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			metadata, err := a.objectOrNil("metadata")
			if err != nil {
				return "", err
			}
			rel, err := d.store.Create(a.str("path"), a.str("content"), metadata)
			if err != nil {
				return "", err
			}
			return renderCreated(rel), nil
		},
	},
	OpReadFile: {
		name:        "read_file",
		description: "Read a markdown file",
		args: []argDef{
			{name: "path", desc: "Relative path to the file", typ: argString, required: true},
		},
		readOnly: true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			doc, err := d.store.Read(a.str("path"))
			if err != nil {
				return "", err
			}
			return renderDocument(doc), nil
		},
	},
	OpUpdateFile: {
		name:        "update_file",
		description: "Update an existing markdown file",
		args: []argDef{
			{name: "path", desc: "Relative path to the file", typ: argString, required: true},
			{name: "content", desc: "New content (optional)", typ: argString},
			{name: "metadata", desc: "Metadata to update (optional)", typ: argObject},
		},
		destructive: true,
		idempotent:  true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			metadata, err := a.objectOrNil("metadata")
			if err != nil {
				return "", err
			}
			rel, err := d.store.Update(a.str("path"), a.strOrNil("content"), metadata)
			if err != nil {
				return "", err
			}
			return renderUpdated(rel), nil
		},
	},
	OpDeleteFile: {
		name:        "delete_file",
		description: "Delete a markdown file",
		args: []argDef{
			{name: "path", desc: "Relative path to the file", typ: argString, required: true},
		},
		destructive: true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			deleted, err := d.store.Delete(a.str("path"))
			if err != nil {
				return "", err
			}
			return renderDeleted(a.str("path"), deleted), nil
		},
	},
	OpListFiles: {
		name:        "list_files",
		description: "List all markdown files",
		args: []argDef{
			{name: "pattern", desc: "File pattern (default: *.md)", typ: argString},
		},
		readOnly: true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			files, err := d.store.List(a.str("pattern"))
			if err != nil {
				return "", err
			}
			return renderFileList(files), nil
		},
	},
	OpSearchContent: {
		name:        "search_content",
		description: "Search for text across all files",
		args: []argDef{
			{name: "query", desc: "Search query", typ: argString, required: true},
		},
		readOnly: true,
		run: func(d *Dispatcher, a arguments) (string, error) {
			results, err := d.store.Search(a.str("query"))
			if err != nil {
				return "", err
			}
			return renderSearchResults(results), nil
		},
	},
}

// opByName maps wire names back to enum variants. Built once from the table
// so the two can never drift.
var opByName = func() map[string]Op {
	m := make(map[string]Op, len(ops))
	for op, spec := range ops {
		m[spec.name] = op
	}
	return m
}()

// arguments is a validated view over a raw tool-argument map.
type arguments map[string]any

func (a arguments) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a arguments) strOrNil(key string) *string {
	if v, ok := a[key].(string); ok {
		return &v
	}
	return nil
}

func (a arguments) objectOrNil(key string) (map[string]any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object, got %T", key, v)
	}
	return m, nil
}

// Dispatcher validates operation arguments against the table and invokes the
// document store. It knows nothing about the transport.
type Dispatcher struct {
	store  *store.Store
	logger *logging.AppLogger
}

func NewDispatcher(st *store.Store, logger *logging.AppLogger) *Dispatcher {
	return &Dispatcher{store: st, logger: logger}
}

// Dispatch runs the named operation. An unknown name is a soft failure: the
// reply is a normal text result, keeping the caller's conversation alive.
// Missing or ill-typed arguments and store failures return errors; rendering
// them is the transport layer's concern.
func (d *Dispatcher) Dispatch(name string, raw map[string]any) (string, error) {
	op, ok := opByName[name]
	if !ok {
		d.logger.Warn("Unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}

	spec := ops[op]
	a := arguments(raw)

	for _, def := range spec.args {
		v, present := a[def.name]
		if !present || v == nil {
			if def.required {
				return "", fmt.Errorf("missing required argument %q for %s", def.name, spec.name)
			}
			continue
		}
		if def.typ == argString {
			if _, ok := v.(string); !ok {
				return "", fmt.Errorf("argument %q of %s must be a string, got %T", def.name, spec.name, v)
			}
		}
	}

	d.logger.Debug("Dispatching operation", "tool", spec.name)
	return spec.run(d, a)
}
