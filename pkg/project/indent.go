package project

import (
	"bytes"
	"path"
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/spf13/afero"
)

// DefaultIndent matches Python convention.
const DefaultIndent = "    "

// IndentFor resolves the indentation unit for a generated file by
// consulting .editorconfig files from the file's directory upward.
// Lookup failures fall back to four spaces; generated code should never
// fail over editor configuration.
func IndentFor(fsys afero.Fs, file string) string {
	dir := path.Dir(file)
	for {
		ecPath := path.Join(dir, ".editorconfig")
		data, err := afero.ReadFile(fsys, ecPath)
		if err == nil {
			ec, perr := editorconfig.Parse(bytes.NewReader(data))
			if perr == nil {
				def, derr := ec.GetDefinitionForFilename(path.Base(file))
				if derr == nil {
					if indent, ok := indentFromDefinition(def); ok {
						return indent
					}
				}
			}
			if ec != nil && ec.Root {
				break
			}
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return DefaultIndent
}

func indentFromDefinition(def *editorconfig.Definition) (string, bool) {
	if def == nil {
		return "", false
	}
	switch def.IndentStyle {
	case editorconfig.IndentStyleTab:
		return "\t", true
	case editorconfig.IndentStyleSpaces:
		size := 4
		if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 && n <= 16 {
			size = n
		}
		return strings.Repeat(" ", size), true
	}
	return "", false
}
